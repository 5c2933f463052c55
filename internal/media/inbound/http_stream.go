package inbound

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shandysiswandi/gostream/internal/pkg/pkgerror"
	"github.com/shandysiswandi/gostream/internal/pkg/pkgrouter"
)

const contentTypeVideo = "video/mp4"

var errBadRange = errors.New("unsatisfiable range")

// StreamVideo serves an asset's bytes, honoring single-range requests.
// The handler is read-only: it neither consults nor changes the asset's
// classification status, and content is streamed with a bounded buffer.
func (h *HTTPEndpoint) StreamVideo(w http.ResponseWriter, r *http.Request) {
	assetID := pkgrouter.GetParam(r.Context(), "id")

	asset, content, err := h.uc.Stream(r.Context(), assetID)
	if err != nil {
		writeStreamError(w, err)
		return
	}
	defer func() {
		_ = content.Close()
	}()

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Type", contentTypeVideo)
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", strconv.FormatInt(asset.ByteSize, 10))
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, content); err != nil {
			slog.WarnContext(r.Context(), "full stream aborted", "asset_id", asset.ID, "error", err)
		}
		return
	}

	// policy: a Range header that is present but unparsable is answered
	// 416, never silently treated as absent
	start, end, err := parseRange(rangeHeader, asset.ByteSize)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", asset.ByteSize))
		writeStreamJSON(w, "requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if _, err := content.Seek(start, io.SeekStart); err != nil {
		writeStreamJSON(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	length := end - start + 1
	w.Header().Set("Content-Type", contentTypeVideo)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, asset.ByteSize))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := io.CopyN(w, content, length); err != nil {
		slog.WarnContext(r.Context(), "partial stream aborted",
			"asset_id", asset.ID, "start", start, "end", end, "error", err)
	}
}

// parseRange interprets a single-range header of the form
// "bytes=<start>-[<end>]". A missing end means end of content; end is
// clamped to the last byte. Multi-range requests, suffix ranges, malformed
// syntax, start beyond the content, and start > end are all errors.
func parseRange(header string, size int64) (int64, int64, error) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return 0, 0, errBadRange
	}

	if strings.Contains(spec, ",") {
		return 0, 0, errBadRange
	}

	startRaw, endRaw, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, errBadRange
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startRaw), 10, 64)
	if err != nil || start < 0 {
		return 0, 0, errBadRange
	}

	end := size - 1
	if raw := strings.TrimSpace(endRaw); raw != "" {
		end, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || end < 0 {
			return 0, 0, errBadRange
		}
	}

	if start >= size {
		return 0, 0, errBadRange
	}

	if end > size-1 {
		end = size - 1
	}

	if start > end {
		return 0, 0, errBadRange
	}

	return start, end, nil
}

func writeStreamError(w http.ResponseWriter, err error) {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		writeStreamJSON(w, perr.Msg(), perr.StatusCode())
		return
	}

	writeStreamJSON(w, "Internal server error", http.StatusInternalServerError)
}

func writeStreamJSON(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"message": msg}); err != nil {
		slog.Error("failed to encode stream error", "error", err)
	}
}

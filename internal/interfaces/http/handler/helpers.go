package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/induservicios/backend/internal/interfaces/http/dto"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout      = "2006-01-02"
)

// DateRangeQuery is the from/to pair of admin listings and exports.
// Dates are inclusive calendar days.
type DateRangeQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// Bounds parses the range. to is moved to the end of its day.
func (q DateRangeQuery) Bounds() (from, to *time.Time, err error) {
	if q.From != "" {
		t, perr := time.Parse(dateLayout, q.From)
		if perr != nil {
			return nil, nil, fmt.Errorf("invalid from date %q", q.From)
		}
		from = &t
	}
	if q.To != "" {
		t, perr := time.Parse(dateLayout, q.To)
		if perr != nil {
			return nil, nil, fmt.Errorf("invalid to date %q", q.To)
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("to date is before from date")
	}
	return from, to, nil
}

// queryBool reads an optional boolean query parameter
func queryBool(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q", name, raw)
	}
	return &v, nil
}

// readFormFile reads a multipart file up to maxBytes
func readFormFile(c *gin.Context, field string, maxBytes int64) ([]byte, *multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("missing %s file", field)
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, nil, fmt.Errorf("%s exceeds %d bytes", field, maxBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", field, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, nil, fmt.Errorf("%s exceeds %d bytes", field, maxBytes)
	}
	return data, fh, nil
}

// startXLSXDownload sets the headers of a spreadsheet attachment
func startXLSXDownload(c *gin.Context, prefix string, now time.Time) {
	name := fmt.Sprintf("%s-%s.xlsx", prefix, now.Format("20060102-150405"))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
}

// listFilter binds the shared pagination query
func (h *BaseHandler) listFilter(c *gin.Context) (dto.ListRequest, bool) {
	var req dto.ListRequest
	if !h.bindQuery(c, &req) {
		return req, false
	}
	req.Search = strings.TrimSpace(req.Search)
	return req, true
}

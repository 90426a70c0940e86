package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sagarc03/hearth"
	"github.com/sagarc03/hearth/filesystem"
)

// serveStatic runs the static-resource pipeline: existence, containment,
// conditional request, range, then buffered or streamed delivery. The
// returned error is an internal failure; every client-facing outcome is a
// response.
func (s *Server) serveStatic(req *hearth.Request) (*hearth.Response, error) {
	if s.files == nil {
		return hearth.Error(http.StatusNotFound), nil
	}

	res, err := s.files.Resolve(req.Path)
	if err != nil {
		switch {
		case errors.Is(err, hearth.ErrNotFound):
			return hearth.Error(http.StatusNotFound), nil
		case errors.Is(err, hearth.ErrForbidden):
			s.logger.Warn("path escapes root", "path", req.Path)
			return hearth.Error(http.StatusForbidden), nil
		default:
			return nil, fmt.Errorf("resolve %s: %w", req.Path, err)
		}
	}

	v := hearth.ComputeValidator(res.ModTime, res.Size)

	if hearth.IsNotModified(req.Headers, v) {
		resp := &hearth.Response{Status: http.StatusNotModified}
		addValidatorHeaders(resp, v)
		return resp, nil
	}

	if rangeHeader, ok := req.Headers.Lookup("Range"); ok {
		return s.serveRange(req, res, v, rangeHeader)
	}

	if res.Size > s.cfg.StreamThreshold {
		return s.serveStream(req, res, v)
	}
	return s.serveBuffered(req, res, v)
}

func (s *Server) serveRange(req *hearth.Request, res filesystem.Resource, v hearth.Validator, header string) (*hearth.Response, error) {
	br, err := hearth.ParseRange(header, res.Size)
	if err != nil {
		s.logger.Debug("unsatisfiable range", "path", req.Path, "range", header, "err", err)
		resp := hearth.Error(http.StatusRequestedRangeNotSatisfiable)
		resp.Headers.Add("Content-Range", hearth.UnsatisfiedContentRange(res.Size))
		resp.Headers.Add("Accept-Ranges", "bytes")
		return resp, nil
	}

	transfer, err := s.transfer(req, res, br.Start, br.Length())
	if err != nil {
		return nil, err
	}

	resp := &hearth.Response{
		Status:      http.StatusPartialContent,
		ContentType: res.ContentType,
		Transfer:    transfer,
	}
	addValidatorHeaders(resp, v)
	resp.Headers.Add("Content-Range", br.ContentRange(res.Size))
	return resp, nil
}

func (s *Server) serveStream(req *hearth.Request, res filesystem.Resource, v hearth.Validator) (*hearth.Response, error) {
	transfer, err := s.transfer(req, res, 0, res.Size)
	if err != nil {
		return nil, err
	}

	resp := &hearth.Response{
		Status:      http.StatusOK,
		ContentType: res.ContentType,
		Transfer:    transfer,
	}
	addValidatorHeaders(resp, v)
	return resp, nil
}

func (s *Server) serveBuffered(req *hearth.Request, res filesystem.Resource, v hearth.Validator) (*hearth.Response, error) {
	data, err := s.files.ReadAll(res)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", res.Name, err)
	}

	resp := hearth.Bytes(http.StatusOK, res.ContentType, data)
	addValidatorHeaders(resp, v)

	if hearth.AcceptsGzip(req.Header("Accept-Encoding")) && hearth.IsCompressible(res.ContentType) {
		compressed, err := hearth.Gzip(data, s.cfg.GzipLevel)
		if err != nil {
			return nil, fmt.Errorf("compress %s: %w", res.Name, err)
		}
		resp.Body = compressed
		resp.Headers.Add("Content-Encoding", "gzip")
		resp.Headers.Add("Content-Length", strconv.Itoa(len(compressed)))
		resp.Headers.Add("Vary", "Accept-Encoding")
	}

	return resp, nil
}

// transfer opens the file for a streamed body. HEAD requests never read the
// body, so no file is opened for them.
func (s *Server) transfer(req *hearth.Request, res filesystem.Resource, offset, length int64) (*hearth.Transfer, error) {
	t := &hearth.Transfer{Offset: offset, Length: length}
	if req.IsHead() {
		return t, nil
	}

	f, err := s.files.Open(res)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", res.Name, err)
	}
	t.File = f
	return t, nil
}

func addValidatorHeaders(resp *hearth.Response, v hearth.Validator) {
	resp.Headers.Add("ETag", v.ETag)
	resp.Headers.Add("Last-Modified", v.LastModified)
	resp.Headers.Add("Accept-Ranges", "bytes")
}

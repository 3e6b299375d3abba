package rpcjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/atvirokodosprendimai/gprcatalog/internal/application"
	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/atvirokodosprendimai/gprcatalog/internal/logging"
	"github.com/atvirokodosprendimai/gprcatalog/internal/simconfig"
	"github.com/google/uuid"
)

type Server struct {
	service  *application.CatalogService
	listener net.Listener
	path     string
	ctx      context.Context
	cancel   context.CancelFunc
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func Start(path string, service *application.CatalogService) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{service: service, listener: ln, path: path, ctx: ctx, cancel: cancel}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting connections and cancels in-flight calls.
func (s *Server) Close() error {
	s.cancel()
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		ctx := logging.NewContext(s.ctx, logging.WithFields(s.ctx, "rpc_call_id", uuid.NewString(), "method", req.Method))
		resp := s.dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

type kindParams struct {
	Kind domain.Kind `json:"kind"`
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "catalog.list":
		var p struct {
			kindParams
			Filter domain.ListFilter `json:"filter"`
			Skip   int               `json:"skip"`
			Limit  int               `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		items, err := s.service.List(ctx, p.Kind, p.Filter, p.Skip, p.Limit)
		return reply(ctx, req.ID, items, err)
	case "catalog.get":
		var p struct {
			kindParams
			ID uint `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		v, err := s.service.Get(ctx, p.Kind, p.ID)
		return reply(ctx, req.ID, v, err)
	case "catalog.create":
		var p struct {
			kindParams
			Fields domain.Fields `json:"fields"`
		}
		if !decodeParams(req.Params, &p) || p.Fields == nil {
			return invalidParams(req.ID)
		}
		v, err := s.service.Create(ctx, p.Kind, p.Fields)
		return reply(ctx, req.ID, v, err)
	case "catalog.update":
		var p struct {
			kindParams
			ID     uint          `json:"id"`
			Fields domain.Fields `json:"fields"`
		}
		if !decodeParams(req.Params, &p) || p.Fields == nil {
			return invalidParams(req.ID)
		}
		v, err := s.service.Update(ctx, p.Kind, p.ID, p.Fields)
		return reply(ctx, req.ID, v, err)
	case "catalog.delete":
		var p struct {
			kindParams
			ID uint `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		err := s.service.Delete(ctx, p.Kind, p.ID)
		return reply(ctx, req.ID, map[string]any{"deleted": err == nil, "kind": p.Kind, "id": p.ID}, err)
	case "catalog.statistics":
		stats, err := s.service.Statistics(ctx)
		return reply(ctx, req.ID, stats, err)
	case "catalog.search":
		var p struct {
			Query string `json:"query"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		result, err := s.service.Search(ctx, p.Query)
		return reply(ctx, req.ID, result, err)
	case "system.health":
		health, err := s.service.Health(ctx)
		return reply(ctx, req.ID, health, err)
	case "ingest.batch":
		var p struct {
			Batch  json.RawMessage `json:"batch"`
			Atomic bool            `json:"atomic"`
		}
		if !decodeParams(req.Params, &p) || len(p.Batch) == 0 {
			return invalidParams(req.ID)
		}
		batch, err := application.DecodeBatch(bytes.NewReader(p.Batch))
		if err != nil {
			return appError(req.ID, err)
		}
		result, err := s.service.IngestBatch(ctx, batch, application.BatchOptions{Atomic: p.Atomic})
		return reply(ctx, req.ID, result, err)
	case "ingest.csv":
		var p struct {
			kindParams
			CSV string `json:"csv"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		result, err := s.service.ImportCSV(ctx, p.Kind, strings.NewReader(p.CSV))
		return reply(ctx, req.ID, result, err)
	case "config.validate":
		var p struct {
			Document string `json:"document"`
			Format   string `json:"format"`
			Resolve  bool   `json:"resolve"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ValidateConfig(ctx, []byte(p.Document), simconfig.ParseFormat(p.Format), p.Resolve)
		return reply(ctx, req.ID, out, err)
	case "config.template":
		var p struct {
			Format string `json:"format"`
		}
		if len(req.Params) > 0 && !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		format := simconfig.ParseFormat(p.Format)
		data, err := s.service.ConfigTemplate(format)
		return reply(ctx, req.ID, map[string]any{"format": format, "content": string(data)}, err)
	}

	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
}

// decodeParams keeps numbers as json.Number inside free-form fields.
func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out) == nil
}

func reply(ctx context.Context, id any, result any, err error) response {
	if err == nil {
		return response{JSONRPC: "2.0", Result: result, ID: id}
	}
	if domain.IsDomainError(err) {
		return appError(id, err)
	}
	logging.FromContext(ctx).Error("rpc call failed", "error", err)
	return internalError(id, err)
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

// appError encodes a catalog error as 40000 plus its HTTP-style status, with
// the structured fields in data.
func appError(id any, err error) response {
	data := domain.Details(err)
	if data == nil {
		data = map[string]any{}
	}
	data["code"] = domain.Code(err)
	var batchErr *application.BatchError
	if errors.As(err, &batchErr) {
		data["kind"] = batchErr.Kind
		data["index"] = batchErr.Index
		data["committed"] = batchErr.Committed
	}
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 40000 + statusOf(err), Message: err.Error(), Data: data}, ID: id}
}

func internalError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 50000, Message: fmt.Sprintf("internal error: %v", err)}, ID: id}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return 404
	case errors.Is(err, domain.ErrSchemaViolation):
		return 422
	case errors.Is(err, domain.ErrDuplicateName), errors.Is(err, domain.ErrInUse), errors.Is(err, domain.ErrConflict):
		return 409
	}
	return 400
}

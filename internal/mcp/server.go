// Package mcp exposes the indexing pipeline over a JSON-RPC/stdio
// transport with exactly three tools: full_index, status, query.
//
// Grounded on the teacher's internal/mcp/server.go for the Content-Length
// framing, JSON-RPC dispatch table, and initialize/tools-list/tools-call
// handshake; the codebase-retrieval tool's LLM query-planning and
// duplicate-detection branches are dropped per the Non-goal excluding any
// ranking model beyond embedding + nearest-neighbor search.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"codebase-indexer/internal/embeddings"
	"codebase-indexer/internal/indexer"
	"codebase-indexer/internal/logging"
	"codebase-indexer/internal/scheduler"
	"codebase-indexer/internal/vectorstore"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server is the JSON-RPC/stdio MCP server. Every tool call resolves a
// project root to its own indexer.Pipeline on demand; the scheduler keeps
// at most one periodic incremental worker per project and runs that
// project's passes one at a time.
type Server struct {
	store     *vectorstore.Adapter
	embedder  embeddings.Embedder
	scheduler *scheduler.Scheduler
	log       *slog.Logger
}

func NewServer(store *vectorstore.Adapter, embedder embeddings.Embedder, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{
		store:     store,
		embedder:  embedder,
		scheduler: scheduler.New(log),
		log:       log,
	}
}

func (s *Server) Run() error {
	reader := bufio.NewReader(os.Stdin)
	writer := bufio.NewWriter(os.Stdout)

	for {
		payload, err := readMessage(reader)
		if err != nil {
			if err == io.EOF {
				break
			}
			s.writeError(writer, nil, -32700, err.Error())
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			s.writeError(writer, nil, -32700, "Parse error")
			continue
		}

		s.handleRequest(writer, &req)
	}

	s.scheduler.StopAll()
	return nil
}

func (s *Server) handleRequest(writer *bufio.Writer, req *JSONRPCRequest) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(writer, req)
	case "tools/list":
		s.handleToolsList(writer, req)
	case "tools/call":
		s.handleToolsCall(writer, req)
	case "resources/list":
		s.writeResponse(writer, req.ID, map[string]interface{}{"resources": []interface{}{}})
	case "prompts/list":
		s.writeResponse(writer, req.ID, map[string]interface{}{"prompts": []interface{}{}})
	case "ping":
		s.writeResponse(writer, req.ID, map[string]interface{}{"status": "ok"})
	case "shutdown":
		s.writeResponse(writer, req.ID, map[string]interface{}{})
	case "notifications/initialized":
		return
	case "exit":
		s.scheduler.StopAll()
		os.Exit(0)
	default:
		if req.ID != nil {
			s.writeError(writer, req.ID, -32601, "Method not found")
		}
	}
}

func (s *Server) handleInitialize(writer *bufio.Writer, req *JSONRPCRequest) {
	result := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"serverInfo": map[string]string{
			"name":    "codebase-indexer-mcp",
			"version": "1.0.0",
		},
		"capabilities": map[string]interface{}{
			"tools":     map[string]interface{}{},
			"resources": map[string]interface{}{},
			"prompts":   map[string]interface{}{},
		},
	}
	s.writeResponse(writer, req.ID, result)
}

func (s *Server) handleToolsList(writer *bufio.Writer, req *JSONRPCRequest) {
	tools := []map[string]interface{}{
		{
			"name":        "full_index",
			"description": "Ensure the background indexer is running against a project: runs a full pass immediately and a periodic incremental pass every 5 minutes thereafter.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_path": map[string]interface{}{"type": "string", "description": "Absolute path to the project root."},
				},
				"required": []string{"project_path"},
			},
		},
		{
			"name":        "status",
			"description": "Report the last index time, file count, and file hashes for a project.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_path": map[string]interface{}{"type": "string", "description": "Absolute path to the project root."},
				},
				"required": []string{"project_path"},
			},
		},
		{
			"name":        "query",
			"description": "Semantic search over a project's indexed code blocks.",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_path": map[string]interface{}{"type": "string", "description": "Absolute path to the project root."},
					"text":         map[string]interface{}{"type": "string", "description": "Natural language query."},
					"top_k":        map[string]interface{}{"type": "integer", "description": "Maximum results to return (default 5)."},
				},
				"required": []string{"project_path", "text"},
			},
		},
	}
	s.writeResponse(writer, req.ID, map[string]interface{}{"tools": tools})
}

func (s *Server) handleToolsCall(writer *bufio.Writer, req *JSONRPCRequest) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(writer, req.ID, -32602, "Invalid params")
		return
	}

	var result interface{}
	var err error

	switch params.Name {
	case "full_index":
		result, err = s.toolFullIndex(params.Arguments)
	case "status":
		result, err = s.toolStatus(params.Arguments)
	case "query":
		result, err = s.toolQuery(params.Arguments)
	default:
		s.writeError(writer, req.ID, -32602, "Unknown tool")
		return
	}

	if err != nil {
		s.writeResponse(writer, req.ID, map[string]interface{}{
			"content": []map[string]interface{}{{"type": "text", "text": formatResult(map[string]string{"error": err.Error()})}},
		})
		return
	}

	s.writeResponse(writer, req.ID, map[string]interface{}{
		"content": []map[string]interface{}{{"type": "text", "text": formatResult(result)}},
	})
}

func (s *Server) toolFullIndex(args json.RawMessage) (interface{}, error) {
	var input struct {
		ProjectPath string `json:"project_path"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}

	pipeline, err := indexer.New(input.ProjectPath, s.store, s.embedder, s.log)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	s.scheduler.StartAutoIndexing(pipeline.ProjectRoot, pipeline)
	return map[string]string{"status": "ok", "message": "background indexing started"}, nil
}

func (s *Server) toolStatus(args json.RawMessage) (interface{}, error) {
	var input struct {
		ProjectPath string `json:"project_path"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}

	pipeline, err := indexer.New(input.ProjectPath, s.store, s.embedder, s.log)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	meta, _ := indexer.ReadMetadata(pipeline.IndexDir)
	hashes, _ := indexer.ReadFileHashes(pipeline.IndexDir)

	return map[string]interface{}{
		"last_index_time":     meta.LastIndexTime,
		"total_files":         meta.TotalFilesIndexed,
		"file_hashes":         hashes,
		"path":                pipeline.IndexDir,
	}, nil
}

func (s *Server) toolQuery(args json.RawMessage) (interface{}, error) {
	var input struct {
		ProjectPath string `json:"project_path"`
		Text        string `json:"text"`
		TopK        int    `json:"top_k"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, err
	}
	if input.TopK == 0 {
		input.TopK = 5
	}

	pipeline, err := indexer.New(input.ProjectPath, s.store, s.embedder, s.log)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	vec, err := s.embedder.Embed(context.Background(), input.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	result := s.store.Query(context.Background(), pipeline.Collection, vec, uint64(input.TopK))
	return result, nil
}

func (s *Server) writeResponse(writer *bufio.Writer, id interface{}, result interface{}) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	data, _ := json.Marshal(resp)
	writeMessage(writer, data)
}

func (s *Server) writeError(writer *bufio.Writer, id interface{}, code int, message string) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
	data, _ := json.Marshal(resp)
	writeMessage(writer, data)
}

func formatResult(result interface{}) string {
	data, _ := json.MarshalIndent(result, "", "  ")
	return string(data)
}

func readMessage(reader *bufio.Reader) ([]byte, error) {
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			continue
		}

		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "content-length:") {
			value := strings.TrimSpace(trimmed[len("Content-Length:"):])
			length, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %s", value)
			}

			if _, err := reader.ReadString('\n'); err != nil {
				return nil, err
			}

			buf := make([]byte, length)
			if _, err := io.ReadFull(reader, buf); err != nil {
				return nil, err
			}
			return buf, nil
		}

		return []byte(trimmed), nil
	}
}

func writeMessage(writer *bufio.Writer, data []byte) {
	writer.Write(data)
	writer.WriteByte('\n')
	writer.Flush()
}

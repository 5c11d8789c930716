package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mikeboe/usecase-scout/pkg/corpus"
	"github.com/mikeboe/usecase-scout/pkg/research"
)

// MCPSession represents an MCP session
type MCPSession struct {
	ID      string
	Created int64
}

// MCPRequest represents an MCP JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an MCP JSON-RPC response
type MCPResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *MCPError `json:"error,omitempty"`
}

// MCPError represents an MCP error
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JobService is the job API backing the REST routes.
type JobService interface {
	CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	ListJobs(ctx context.Context) ([]Job, error)
	GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error)
	CompanyInfo(ctx context.Context, name string) research.CompanyInfo
	SearchContent(ctx context.Context, query string, topK int, company string) ([]corpus.Hit, error)
}

type Handler struct {
	Service JobService

	sessions  map[string]*MCPSession
	sessionMu sync.RWMutex
}

func NewHandler(s JobService) *Handler {
	return &Handler{Service: s, sessions: make(map[string]*MCPSession)}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.healthz)
	r.POST("/mcp", h.MCPHandler)
	api := r.Group("/api")
	{
		api.POST("/jobs", h.createJob)
		api.GET("/jobs", h.listJobs)
		api.GET("/jobs/:id", h.getJob)
		api.GET("/jobs/:id/logs", h.getJobLogs)
		api.GET("/company-info", h.companyInfo)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// MCPHandler handles MCP protocol requests
func (h *Handler) MCPHandler(c *gin.Context) {
	sessionID := c.GetHeader("Mcp-Session-Id")

	var req MCPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, MCPResponse{
			JSONRPC: "2.0",
			Error:   &MCPError{Code: -32700, Message: "Parse error"},
		})
		return
	}

	if req.Method == "initialize" {
		if sessionID == "" {
			sessionID = uuid.New().String()
			h.sessionMu.Lock()
			h.sessions[sessionID] = &MCPSession{ID: sessionID, Created: time.Now().Unix()}
			h.sessionMu.Unlock()
		}
		c.Header("Mcp-Session-Id", sessionID)

		c.JSON(http.StatusOK, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: gin.H{
				"protocolVersion": "2024-11-05",
				"serverInfo": gin.H{
					"name":    "usecase-scout-mcp",
					"version": "1.0.0",
				},
				"capabilities": gin.H{
					"tools": gin.H{},
				},
			},
		})
		return
	}

	if sessionID == "" {
		c.JSON(http.StatusBadRequest, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &MCPError{Code: -32000, Message: "Bad Request: No valid session ID provided"},
		})
		return
	}

	h.sessionMu.RLock()
	_, exists := h.sessions[sessionID]
	h.sessionMu.RUnlock()

	if !exists {
		c.JSON(http.StatusBadRequest, MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &MCPError{Code: -32000, Message: "Invalid session ID"},
		})
		return
	}

	switch req.Method {
	case "tools/list":
		h.handleToolsList(c, req)
	case "tools/call":
		h.handleToolsCall(c, req)
	case "ping":
		c.JSON(http.StatusOK, MCPResponse{JSONRPC: "2.0", ID: req.ID, Result: gin.H{}})
	default:
		h.sendError(c, req.ID, -32601, "Method not found")
	}
}

func (h *Handler) handleToolsList(c *gin.Context, req MCPRequest) {
	c.JSON(http.StatusOK, MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: gin.H{
			"tools": []gin.H{
				{
					"name":        "company_research",
					"description": "Search the web for a company and return text from its Wikipedia article and official website.",
					"inputSchema": gin.H{
						"type": "object",
						"properties": gin.H{
							"company": gin.H{
								"type":        "string",
								"description": "The company name.",
							},
						},
						"required": []string{"company"},
					},
				},
				{
					"name":        "search_content",
					"description": "Semantic search over previously researched company text.",
					"inputSchema": gin.H{
						"type": "object",
						"properties": gin.H{
							"query": gin.H{
								"type":        "string",
								"description": "The search query.",
							},
							"topK": gin.H{
								"type":        "number",
								"description": "The number of top results to return.",
								"default":     5,
							},
							"company": gin.H{
								"type":        "string",
								"description": "Restrict results to one company.",
							},
						},
						"required": []string{"query"},
					},
				},
			},
		},
	})
}

type companyResearchArgs struct {
	Company string `json:"company"`
}

type searchContentArgs struct {
	Query   string `json:"query"`
	TopK    int    `json:"topK"`
	Company string `json:"company"`
}

func (h *Handler) handleToolsCall(c *gin.Context, req MCPRequest) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		h.sendError(c, req.ID, -32602, "Invalid params")
		return
	}

	ctx := c.Request.Context()
	switch params.Name {
	case "company_research":
		var args companyResearchArgs
		if err := json.Unmarshal(params.Arguments, &args); err != nil || strings.TrimSpace(args.Company) == "" {
			h.sendError(c, req.ID, -32602, "Invalid arguments")
			return
		}
		info := h.Service.CompanyInfo(ctx, args.Company)
		h.sendResult(c, req.ID, research.FormatCompanyInfo(info))

	case "search_content":
		var args searchContentArgs
		if err := json.Unmarshal(params.Arguments, &args); err != nil || strings.TrimSpace(args.Query) == "" {
			h.sendError(c, req.ID, -32602, "Invalid arguments")
			return
		}
		if args.TopK <= 0 {
			args.TopK = 5
		}
		hits, err := h.Service.SearchContent(ctx, args.Query, args.TopK, args.Company)
		if err != nil {
			h.sendError(c, req.ID, -32603, err.Error())
			return
		}
		h.sendResult(c, req.ID, formatHits(hits))

	default:
		h.sendError(c, req.ID, -32601, fmt.Sprintf("Tool not found: %s", params.Name))
	}
}

func formatHits(hits []corpus.Hit) string {
	if len(hits) == 0 {
		return "No results found."
	}
	var sb strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&sb, "Result %d (score %.3f, %s, %s):\n%s\n\n", i+1, hit.Score, hit.Company, hit.Source, hit.Content)
	}
	return sb.String()
}

func (h *Handler) sendError(c *gin.Context, id any, code int, msg string) {
	c.JSON(http.StatusOK, MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &MCPError{Code: code, Message: msg},
	})
}

func (h *Handler) sendResult(c *gin.Context, id any, text string) {
	c.JSON(http.StatusOK, MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result: gin.H{
			"content": []gin.H{
				{"type": "text", "text": text},
			},
		},
	})
}

func (h *Handler) createJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Company = strings.TrimSpace(req.Company)
	if req.Company == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company is required"})
		return
	}

	job, err := h.Service.CreateJob(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *Handler) listJobs(c *gin.Context) {
	jobs, err := h.Service.ListJobs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []Job{}
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *Handler) getJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	job, err := h.Service.GetJob(c.Request.Context(), id)
	if errors.Is(err, ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) getJobLogs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	logs, err := h.Service.GetJobLogs(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []LogEntry{}
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) companyInfo(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	c.JSON(http.StatusOK, h.Service.CompanyInfo(c.Request.Context(), name))
}

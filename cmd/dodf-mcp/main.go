// Command dodf-mcp exposes the dodf HTTP API as MCP tools over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/dodf/models"
)

func main() {
	apiURL := os.Getenv("DODF_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("DODF_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "DODF_API_KEY is required")
		os.Exit(1)
	}

	s := newServer(&client{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 120 * time.Second},
		poll:    2 * time.Second,
	})

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(c *client) *server.MCPServer {
	s := server.NewMCPServer(
		"dodf",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_text",
		mcp.WithDescription("Extract the Nota de Empenho fields (note number, process, parties, CNPJ, object, contract reference, amount, issuance date, term) from the text of a DODF publication. Returns 'not applicable' when the text is not a Nota de Empenho."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The publication text"),
		),
	)
	s.AddTool(extractTool, handleExtract(c))

	runTool := mcp.NewTool("run_date",
		mcp.WithDescription("Collect every Nota de Empenho currently listed on the DODF and export them to a spreadsheet. Waits for the run to finish and returns its summary."),
		mcp.WithString("date",
			mcp.Description("Date used to name the spreadsheet, YYYY-MM-DD (default: today)"),
		),
	)
	s.AddTool(runTool, handleRun(c))

	previewTool := mcp.NewTool("preview_document",
		mcp.WithDescription("Fetch one DODF publication and return the extracted fields plus a Markdown rendition of the page."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Publication URL; root-relative paths are resolved against the DODF origin"),
		),
		mcp.WithBoolean("markdown",
			mcp.Description("Include the Markdown rendition (default: true)"),
		),
	)
	s.AddTool(previewTool, handlePreview(c))

	return s
}

// client talks to the dodf API.
type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	poll    time.Duration
}

func (c *client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollRun polls a run until it leaves the processing state or ctx is done.
func (c *client) pollRun(ctx context.Context, id string) (*models.RunStatusResponse, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := c.do(ctx, http.MethodGet, "/api/v1/runs/"+id, nil)
			if err != nil {
				return nil, err
			}
			var st models.RunStatusResponse
			if err := json.Unmarshal(body, &st); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if st.Status != models.RunProcessing {
				return &st, nil
			}
		}
	}
}

func errorText(fallback string, e *models.ErrorDetail) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// formatRecord renders a record as "Header: value" lines in column order.
func formatRecord(rec *models.Record) string {
	var sb strings.Builder
	for _, f := range models.Fields {
		v := "-"
		if p := rec.Get(f); p != nil {
			v = *p
		}
		fmt.Fprintf(&sb, "%s: %s\n", f.Header(), v)
	}
	return sb.String()
}

func handleExtract(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		body, err := c.do(ctx, http.MethodPost, "/api/v1/extract", models.ExtractRequest{Text: text})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.ExtractResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("extraction failed", resp.Error)), nil
		}
		if !resp.Applicable || resp.Record == nil {
			return mcp.NewToolResultText("Not applicable: the text is not a Nota de Empenho."), nil
		}
		return mcp.NewToolResultText(formatRecord(resp.Record)), nil
	}
}

func handleRun(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload := models.RunRequest{Date: request.GetString("date", "")}

		body, err := c.do(ctx, http.MethodPost, "/api/v1/runs", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run request failed: %v", err)), nil
		}

		var created struct {
			models.RunResponse
			Error *models.ErrorDetail `json:"error"`
		}
		if err := json.Unmarshal(body, &created); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse run response: %v", err)), nil
		}
		if created.ID == "" {
			return mcp.NewToolResultError(errorText("run creation failed", created.Error)), nil
		}

		st, err := c.pollRun(ctx, created.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling run failed: %v", err)), nil
		}
		if st.Result == nil {
			return mcp.NewToolResultError(errorText("run failed", st.Error)), nil
		}

		r := st.Result
		var sb strings.Builder
		fmt.Fprintf(&sb, "Run %s for %s: %s\n", st.ID, st.Date, st.Status)
		if r.Reason != "" {
			fmt.Fprintf(&sb, "Reason: %s\n", r.Reason)
		}
		fmt.Fprintf(&sb, "Links found: %d, processed: %d, skipped: %d, failed: %d, duplicates: %d\n",
			r.LinksFound, r.Processed, r.Skipped, r.Failed, r.Duplicates)
		if r.Artifact != "" {
			fmt.Fprintf(&sb, "Artifact: %s\n", r.Artifact)
		}
		for i, rec := range r.Records {
			fmt.Fprintf(&sb, "\n--- [%d] ---\n%s", i+1, formatRecord(rec))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handlePreview(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		markdown := request.GetBool("markdown", true)

		body, err := c.do(ctx, http.MethodPost, "/api/v1/document", models.DocumentRequest{URL: url, Markdown: &markdown})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("document request failed: %v", err)), nil
		}

		var resp models.DocumentResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse document response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("document fetch failed", resp.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Title: %s\nSource: %s\nEngine: %s\n\n", resp.Title, resp.URL, resp.EngineUsed)
		if resp.Applicable && resp.Record != nil {
			sb.WriteString(formatRecord(resp.Record))
		} else {
			sb.WriteString("Not a Nota de Empenho.\n")
		}
		if resp.Markdown != "" {
			sb.WriteString("\n---\n")
			sb.WriteString(resp.Markdown)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

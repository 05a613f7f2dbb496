// Package mcpserver provides an MCP (Model Context Protocol) server that
// lets an LLM fill in and submit the note form over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"codeberg.org/snonux/ankiform/internal"
	"codeberg.org/snonux/ankiform/internal/compose"
	"codeberg.org/snonux/ankiform/internal/probe"
	"codeberg.org/snonux/ankiform/internal/processor"
	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/submit"
)

// Server wraps the MCP server with the note form tools.
type Server struct {
	mcp    *server.MCPServer
	proc   *processor.Processor
	prober *probe.Prober
}

// New creates a new MCP server with all tools registered. checker may be
// nil, which disables the connection_status tool.
func New(proc *processor.Processor, checker probe.Checker) *Server {
	s := &Server{proc: proc}
	if checker != nil {
		s.prober = probe.New(checker, nil, nil)
	}

	s.mcp = server.NewMCPServer(
		"ankiform",
		internal.Version,
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("add_note",
		append([]mcp.ToolOption{
			mcp.WithDescription("Compose a note from the form sections and add it to Anki. " +
				"Layout, deck and note type come from the saved settings. Media is " +
				"passed as base64 data URIs (data:audio/mpeg;base64,...)."),
		}, formOptions()...)...,
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("preview_note",
		append([]mcp.ToolOption{
			mcp.WithDescription("Show the fields a note would get without sending it to Anki."),
		}, formOptions()...)...,
	), s.previewNote)

	s.mcp.AddTool(mcp.NewTool("list_decks",
		mcp.WithDescription("List the deck names of the Anki collection."),
	), s.listDecks)

	s.mcp.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List the note type names of the Anki collection."),
	), s.listModels)

	s.mcp.AddTool(mcp.NewTool("model_fields",
		mcp.WithDescription("List the fields of a note type, in order."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Note type name (e.g. Basic)")),
	), s.modelFields)

	s.mcp.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Return the saved note layout settings as JSON."),
	), s.getSettings)

	s.mcp.AddTool(mcp.NewTool("connection_status",
		mcp.WithDescription("Check whether AnkiConnect is reachable."),
	), s.connectionStatus)

	return s
}

func formOptions() []mcp.ToolOption {
	opts := []mcp.ToolOption{
		mcp.WithString(string(settings.TargetWord), mcp.Required(),
			mcp.Description("The word or phrase; goes to the front field")),
	}
	for _, sec := range settings.TextSections() {
		if sec == settings.TargetWord {
			continue
		}
		opts = append(opts, mcp.WithString(string(sec), mcp.Description(sec.Label())))
	}
	return append(opts,
		mcp.WithString(string(settings.SentenceAudio), mcp.Description("Sentence audio as a base64 data URI")),
		mcp.WithString(string(settings.WordAudio), mcp.Description("Word audio as a base64 data URI")),
		mcp.WithArray(string(settings.Images), mcp.WithStringItems(),
			mcp.Description("Images as base64 data URIs")),
		mcp.WithBoolean("memeMode", mcp.Description("Annotate the preview with meme mode")),
		mcp.WithBoolean("modifySyntax", mcp.Description("Annotate the preview with modified syntax")),
	)
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// formFromRequest reads the form sections and media of a tool call.
func formFromRequest(req mcp.CallToolRequest) (compose.FormState, error) {
	var form compose.FormState
	for _, sec := range settings.TextSections() {
		form.SetText(sec, req.GetString(string(sec), ""))
	}
	form.MemeMode = req.GetBool("memeMode", false)
	form.ModifySyntax = req.GetBool("modifySyntax", false)

	var err error
	if uri := req.GetString(string(settings.SentenceAudio), ""); uri != "" {
		if form.SentenceAudio, err = attachmentFromDataURI(uri, "sentence"); err != nil {
			return form, fmt.Errorf("%s: %w", settings.SentenceAudio, err)
		}
	}
	if uri := req.GetString(string(settings.WordAudio), ""); uri != "" {
		if form.WordAudio, err = attachmentFromDataURI(uri, "word"); err != nil {
			return form, fmt.Errorf("%s: %w", settings.WordAudio, err)
		}
	}
	for i, uri := range req.GetStringSlice(string(settings.Images), nil) {
		att, err := attachmentFromDataURI(uri, fmt.Sprintf("image%d", i+1))
		if err != nil {
			return form, fmt.Errorf("%s[%d]: %w", settings.Images, i, err)
		}
		form.AddImages(att)
	}
	return form, nil
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := req.RequireString(string(settings.TargetWord)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	form, err := formFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.proc.Submit(ctx, form)
	status := submit.Outcome(res, err)
	if err != nil {
		return mcp.NewToolResultError(status.Message), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"status": status,
		"result": res,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) previewNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	form, err := formFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.proc.Preview(ctx, form)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(note.Preview()), nil
}

func (s *Server) listDecks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	decks, err := s.proc.Decks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(decks, "\n")), nil
}

func (s *Server) listModels(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	models, err := s.proc.Models(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(models, "\n")), nil
}

func (s *Server) modelFields(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	model, err := req.RequireString("model")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, err := s.proc.ModelFields(ctx, model)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(fields, "\n")), nil
}

func (s *Server) getSettings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := settings.Encode(s.proc.Settings(ctx))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) connectionStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.prober == nil {
		return mcp.NewToolResultError("connection checks are not configured"), nil
	}
	return mcp.NewToolResultText(s.prober.Check(ctx).Banner()), nil
}

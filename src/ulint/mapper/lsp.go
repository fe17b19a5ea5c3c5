package mapper

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// LintProjectParams are the parameters of the custom lintProject and refresh requests.
type LintProjectParams struct {
	// WorkspaceRoot selects the project. When empty the session's workspace root is used.
	WorkspaceRoot string `json:"workspaceRoot,omitempty"`
}

// RequestToInitializeParams maps the parameters from a jsonrpc2.Request into protocol.InitializeParams.
func RequestToInitializeParams(req jsonrpc2.Request) (*protocol.InitializeParams, error) {
	params := protocol.InitializeParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToInitializedParams maps the parameters from a jsonrpc2.Request into protocol.InitializedParams.
func RequestToInitializedParams(req jsonrpc2.Request) (*protocol.InitializedParams, error) {
	params := protocol.InitializedParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToDidOpenTextDocumentParams maps the parameters from a jsonrpc2.Request into protocol.DidOpenTextDocumentParams.
func RequestToDidOpenTextDocumentParams(req jsonrpc2.Request) (*protocol.DidOpenTextDocumentParams, error) {
	params := protocol.DidOpenTextDocumentParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToDidChangeTextDocumentParams maps the parameters from a jsonrpc2.Request into protocol.DidChangeTextDocumentParams.
func RequestToDidChangeTextDocumentParams(req jsonrpc2.Request) (*protocol.DidChangeTextDocumentParams, error) {
	params := protocol.DidChangeTextDocumentParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToDidSaveTextDocumentParams maps the parameters from a jsonrpc2.Request into protocol.DidSaveTextDocumentParams.
func RequestToDidSaveTextDocumentParams(req jsonrpc2.Request) (*protocol.DidSaveTextDocumentParams, error) {
	params := protocol.DidSaveTextDocumentParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToDidCloseTextDocumentParams maps the parameters from a jsonrpc2.Request into protocol.DidCloseTextDocumentParams.
func RequestToDidCloseTextDocumentParams(req jsonrpc2.Request) (*protocol.DidCloseTextDocumentParams, error) {
	params := protocol.DidCloseTextDocumentParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToLintProjectParams maps the parameters of the custom project requests. Missing params are allowed.
func RequestToLintProjectParams(req jsonrpc2.Request) (*LintProjectParams, error) {
	params := LintProjectParams{}
	raw := req.Params()
	if len(raw) == 0 || string(raw) == "null" {
		return &params, nil
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// FullContent returns the document text carried by a full-sync change notification.
// With full sync every event holds the whole document, so the last one wins.
func FullContent(changes []protocol.TextDocumentContentChangeEvent) (string, bool) {
	if len(changes) == 0 {
		return "", false
	}
	return changes[len(changes)-1].Text, true
}

// URIToPath returns the local path of a file URI. Other schemes have no path.
func URIToPath(u uri.URI) (string, bool) {
	if !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return "", false
	}
	return u.Filename(), true
}

// InitializeParamsToWorkspaceRoot picks the project the session works on.
// The first workspace folder wins over the deprecated root URI and root path.
func InitializeParamsToWorkspaceRoot(params *protocol.InitializeParams) (string, bool) {
	for _, folder := range params.WorkspaceFolders {
		if root, ok := URIToPath(uri.URI(folder.URI)); ok {
			return root, true
		}
	}
	if root, ok := URIToPath(params.RootURI); ok {
		return root, true
	}
	if params.RootPath != "" {
		return params.RootPath, true
	}
	return "", false
}

func wrapErrParse(err error) error {
	return fmt.Errorf("%s: %w", jsonrpc2.ErrParse, err)
}

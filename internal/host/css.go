package host

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Names of the native CSS plugins.
const (
	CSSPluginName     = "host:css"
	CSSPostPluginName = "host:css-post"
)

// CSSModuleVar is the variable that holds the stylesheet text in a CSS
// module served to development clients.
const CSSModuleVar = "__host_css"

// CSSPipeline is the native stylesheet handling. The css plugin minifies
// stylesheet modules; the css-post plugin records them and, in a build,
// emits one stylesheet asset per chunk from the modules the chunk holds.
// In development css-post wraps the stylesheet into a module that
// installs it into the page.
type CSSPipeline struct {
	mu     sync.Mutex
	styles map[string]string
	mode   Mode
	minify bool
}

// NewCSSPipeline creates a pipeline. minify controls whether the css
// plugin compacts stylesheets.
func NewCSSPipeline(minify bool) *CSSPipeline {
	return &CSSPipeline{styles: make(map[string]string), minify: minify}
}

// Style returns the recorded stylesheet of id.
func (p *CSSPipeline) Style(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.styles[id]
	return s, ok
}

func (p *CSSPipeline) plugin() *Plugin {
	return &Plugin{
		Name: CSSPluginName,
		ConfigResolved: func(cfg *ResolvedConfig) error {
			p.mu.Lock()
			p.mode = cfg.Mode
			p.mu.Unlock()
			return nil
		},
		Transform: TransformFunc(func(_ context.Context, code, id string) (*TransformResult, error) {
			if !IsCSS(id) || !p.minify {
				return nil, nil
			}
			out, err := Minify(code)
			if err != nil {
				return nil, fmt.Errorf("minifying %s: %w", id, err)
			}
			return &TransformResult{Code: out}, nil
		}),
	}
}

func (p *CSSPipeline) postPlugin() *Plugin {
	return &Plugin{
		Name: CSSPostPluginName,
		Transform: &ObjectHook{
			Order: EnforcePost,
			Handler: func(_ context.Context, code, id string) (*TransformResult, error) {
				if !IsCSS(id) {
					return nil, nil
				}
				p.mu.Lock()
				p.styles[id] = code
				mode := p.mode
				p.mu.Unlock()

				if mode == ModeServe {
					return &TransformResult{Code: styleModule(id, code)}, nil
				}
				return nil, nil
			},
		},
		RenderChunk: func(_ context.Context, _ string, chunk *Chunk) error {
			ids := make([]string, 0, len(chunk.Modules))
			for id := range chunk.Modules {
				if IsCSS(id) {
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				return nil
			}
			sort.Strings(ids)

			var b strings.Builder
			p.mu.Lock()
			for _, id := range ids {
				b.WriteString(p.styles[id])
			}
			p.mu.Unlock()
			if b.Len() == 0 {
				return nil
			}

			name := strings.TrimSuffix(chunk.FileName, path.Ext(chunk.FileName)) + ".css"
			chunk.Emit(name, b.String())
			return nil
		},
	}
}

// styleModule wraps a stylesheet into a module that installs it into the
// page, replacing an earlier copy of the same id.
func styleModule(id, code string) string {
	quotedID, _ := json.Marshal(id)
	quotedCSS, _ := json.Marshal(code)

	var b strings.Builder
	fmt.Fprintf(&b, "const %s = %s;\n", CSSModuleVar, quotedCSS)
	fmt.Fprintf(&b, "__hostUpdateStyle(%s, %s);\n", quotedID, CSSModuleVar)
	fmt.Fprintf(&b, "export default %s;\n", CSSModuleVar)
	return b.String()
}

// Minify compacts a stylesheet: comments go, whitespace collapses and is
// dropped next to punctuation and a block's trailing semicolon goes.
func Minify(src string) (string, error) {
	lexer := css.NewLexer(parse.NewInputString(src))

	var out []byte
	space := false
	prev := css.ErrorToken
	for {
		tt, text := lexer.Next()
		switch tt {
		case css.ErrorToken:
			if err := lexer.Err(); err != nil && err != io.EOF {
				return "", err
			}
			return string(out), nil
		case css.CommentToken:
			continue
		case css.WhitespaceToken:
			space = len(out) > 0
			continue
		}

		if tt == css.RightBraceToken {
			if n := len(out); n > 0 && out[n-1] == ';' {
				out = out[:n-1]
			}
		}
		if space && !tightAfter(prev) && !tightBefore(tt) {
			out = append(out, ' ')
		}
		space = false
		out = append(out, text...)
		prev = tt
	}
}

func tightAfter(tt css.TokenType) bool {
	switch tt {
	case css.LeftBraceToken, css.RightBraceToken, css.ColonToken, css.SemicolonToken, css.CommaToken:
		return true
	}
	return false
}

func tightBefore(tt css.TokenType) bool {
	switch tt {
	case css.LeftBraceToken, css.RightBraceToken, css.SemicolonToken, css.CommaToken:
		return true
	}
	return false
}

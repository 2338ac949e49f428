package preview

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-rod/screenrec/lib/devices"
)

// Path of the preview view
const Path = "/preview"

var tplPreview = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Preview</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
html, body { width: 100%; height: 100%; overflow: hidden; }
body { background: {{.Background}}; }
.frame { width: 100%; height: 100%; border: 0; display: block; }
.desktop { width: 100%; height: 100%; }
.mobile { width: {{.Width}}px; height: {{.Height}}px; margin: 0 auto; overflow: hidden; }
.loading { display: flex; align-items: center; justify-content: center; height: 100%; font-family: sans-serif; color: #888; }
</style>
</head>
<body>
{{- if .Loading}}
<div class="loading">Loading preview...</div>
{{- else}}
<div class="{{.Mode}}">
{{- if .URL}}
<iframe class="frame" src="{{.URL}}"></iframe>
{{- else}}
{{.HTML}}
{{- end}}
</div>
{{- end}}
</body>
</html>
`))

type view struct {
	Loading    bool
	Mode       devices.Mode
	Width      int
	Height     int
	Background template.CSS
	URL        string
	HTML       template.HTML
}

// Render the payload, nil renders the loading page
func Render(p *Payload) ([]byte, error) {
	v := view{Loading: p == nil, Background: DefaultBackground}

	if p != nil {
		v.Mode = p.DeviceMode
		v.Width, v.Height = p.DeviceMode.Size()
		// the color is checked by Payload.Validate
		v.Background = template.CSS(p.BackgroundColor)
		if p.Kind == KindURL {
			v.URL = p.Content
		} else {
			// the html is authored by the user to be recorded, it's shown as is
			v.HTML = template.HTML(p.Content)
		}
	}

	buf := bytes.NewBuffer(nil)
	err := tplPreview.Execute(buf, v)
	return buf.Bytes(), err
}

// Handler of the preview view, it consumes the payload in the store
func Handler(store *Store) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var p *Payload
		if data, has := store.Take(StorageKey); has {
			if decoded, err := Decode(data); err == nil {
				p = &decoded
			} else {
				_ = ctx.Error(err)
			}
		}

		html, err := Render(p)
		if err != nil {
			_ = ctx.AbortWithError(http.StatusInternalServerError, err)
			return
		}

		ctx.Header("Cache-Control", "no-store")
		ctx.Data(http.StatusOK, "text/html; charset=utf-8", html)
	}
}

// Register the view on the router
func Register(r gin.IRoutes, store *Store) {
	r.GET(Path, Handler(store))
}

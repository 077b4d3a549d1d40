package server

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
)

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"base": filepath.Base,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>blocksim jobs</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { padding: 4px 10px; border-bottom: 1px solid #ddd; text-align: left; }
.failed { color: #b00; }
</style>
</head>
<body>
<h1>Similarity map jobs</h1>
{{if not .}}<p>No jobs yet. POST a request to <code>/api/v1/jobs</code>.</p>{{else}}
<table>
<tr><th>Job</th><th>Image</th><th>Block</th><th>State</th><th>Progress</th><th>Mean</th><th></th></tr>
{{range .}}
<tr>
<td><code>{{.ID}}</code></td>
<td>{{base .Config.ImagePath}}</td>
<td>{{.Config.GetBlockSize}}</td>
<td class="{{.State}}">{{.State}}{{if .Error}}: {{.Error}}{{end}}</td>
<td>{{.Done}} / {{.Blocks}}</td>
<td>{{with .Summary}}{{printf "%.3f" .Mean}}{{end}}</td>
<td>{{if eq .State "completed"}}<a href="/api/v1/jobs/{{.ID}}/overlay.png">overlay</a>
<a href="/api/v1/jobs/{{.ID}}/map.png">map</a>
<a href="/api/v1/jobs/{{.ID}}/report">report</a>{{end}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, s.jobManager.ListJobs()); err != nil {
		slog.Error("Failed to render job list", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

package summarizer

import (
	"bytes"
	"html/template"
	"strings"
)

var detailTemplate = template.Must(template.New("detail").Funcs(template.FuncMap{
	"trim": strings.TrimSpace,
}).Parse(`<!doctype html>
<html lang="ja"><head><meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>診察メモ（詳細）</title>
<style>
  body{font-family:-apple-system,BlinkMacSystemFont,"Hiragino Kaku Gothic ProN","Yu Gothic",Meiryo,sans-serif;margin:16px;line-height:1.72}
  h1{font-size:20px;margin:8px 0 12px}
  h2{font-size:16px;margin:22px 0 8px;border-left:4px solid #4a7;padding-left:8px}
  ul{margin:6px 0 12px 1.2em;padding:0}
  li{margin:4px 0}
  .box{background:#fafafa;border:1px solid #eee;border-radius:8px;padding:12px}
  .muted{color:#666;font-size:12px;margin-top:16px}
  pre{white-space:pre-wrap;background:#fbfbfb;border:1px solid #eee;border-radius:8px;padding:12px}
  .pill{display:inline-block;background:#eef7f0;color:#274;font-weight:600;padding:2px 8px;border-radius:999px;font-size:12px}
</style></head>
<body>
  <h1>診察メモ（詳細）</h1>
{{- define "list"}}{{if .}}<ul>{{range .}}{{if .}}<li>{{.}}</li>{{end}}{{end}}</ul>{{end}}{{end}}
  <div class="box">
    <span class="pill">きょうの要点</span>
    {{template "list" .Detail.SummaryTop3}}
  </div>
{{with trim .Detail.Overview}}  <h2>概要</h2><div>{{.}}</div>
{{end}}{{with .Detail.Decisions}}  <h2>決まったこと</h2>{{template "list" .}}
{{end}}{{with .Detail.TodosUntilNext}}  <h2>あなたがやること</h2>{{template "list" .}}
{{end}}{{with .Detail.RedFlags}}  <h2>こんな時は連絡/受診</h2>{{template "list" .}}
{{end}}{{with .Detail.AskNextTime}}  <h2>次回ききたいこと</h2>{{template "list" .}}
{{end}}{{with .Detail.TermsPlain}}  <h2>やさしい言い換え</h2><ul>{{range .}}<li><b>{{.Term}}</b>：{{.Easy}}{{with .Note}}（{{.}}）{{end}}</li>{{end}}</ul>
{{end}}{{range .Detail.TopicBlocks}}  <h2>{{.Title}}</h2>{{template "list" .Bullets}}
{{end}}{{with .Detail.Timeline}}  <h2>予定表</h2><div>{{range $i, $t := .}}{{if $i}}<br>{{end}}・{{$t.When}}：{{$t.What}}{{with $t.Note}}（{{.}}）{{end}}{{end}}</div>
{{end}}
  <h2>文字起こし（全文）</h2>
  <pre>{{.Transcript}}</pre>

  <p class="muted">※このメモは診断ではありません。変化や不安がある時は医療者へ相談してください。</p>
</body></html>
`))

// renderHTML produces the escaped detail page for a session
func renderHTML(d Detail, transcript string) ([]byte, error) {
	var buf bytes.Buffer
	err := detailTemplate.Execute(&buf, struct {
		Detail     Detail
		Transcript string
	}{d, transcript})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

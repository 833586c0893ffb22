package web

import (
	"html/template"

	"webmcp-bridge/internal/apps"
	"webmcp-bridge/internal/bridge"
)

type pageView struct {
	Name          string
	Title         string
	Regions       bridge.Regions
	Controls      template.HTML
	Notifications []bridge.Notification
	Tools         []string
}

type indexView struct {
	Apps []indexEntry
}

type indexEntry struct {
	Name  string
	Title string
	Tools int
}

func newPageView(app apps.App) pageView {
	view := pageView{
		Name:          app.Name(),
		Title:         app.Title(),
		Regions:       app.Regions(),
		Notifications: app.Notifier().Active(),
		Tools:         app.Host().Tools(),
	}
	if c, ok := app.(apps.Controller); ok {
		view.Controls = c.Controls()
	}
	return view
}

var pages = template.Must(template.New("pages").Parse(`
{{define "index"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>webmcp-bridge</title></head>
<body>
<h1>webmcp-bridge</h1>
<ul id="apps">{{range .Apps}}
  <li><a href="/apps/{{.Name}}/">{{.Title}}</a> <span class="tool-count">{{.Tools}} tools</span></li>{{end}}
</ul>
</body>
</html>{{end}}

{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body data-app="{{.Name}}">
<h1>{{.Title}}</h1>
<div id="notifications">{{range .Notifications}}
  <div class="notification {{.Level}}" data-id="{{.ID}}">{{.Message}}</div>{{end}}
</div>
<main>{{range .Regions}}
<div class="region" data-region="{{.ID}}">{{.HTML}}</div>{{end}}
</main>
{{if .Controls}}<section id="controls">{{.Controls}}</section>{{end}}
<footer><p class="tools">Tools: {{range $i, $t := .Tools}}{{if $i}}, {{end}}<code>{{$t}}</code>{{end}}</p>
<p class="mcp">MCP endpoint: <code>sse</code></p></footer>
<script>
(function () {
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + location.pathname + "live");
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type === "regions") {
      Object.keys(msg.regions).forEach(function (id) {
        var el = document.querySelector('[data-region="' + id + '"]');
        if (el) { el.innerHTML = msg.regions[id]; }
      });
    } else if (msg.type === "notification") {
      var n = document.createElement("div");
      n.className = "notification " + msg.notification.type;
      n.textContent = msg.notification.message;
      document.getElementById("notifications").appendChild(n);
      setTimeout(function () { n.remove(); }, new Date(msg.notification.expiresAt) - new Date(msg.notification.createdAt));
    }
  };
})();
</script>
</body>
</html>{{end}}
`))

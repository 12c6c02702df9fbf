package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateClass": func(k button.StateKind) string {
		switch k {
		case button.Down, button.Pressed, button.Held:
			return "down"
		case button.Unknown:
			return "unknown"
		default:
			return "up"
		}
	},
	"ms": func(d time.Duration) int64 { return d.Milliseconds() },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Button Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.down { color: green; font-weight: bold; }
.up { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.error { color: red; }
</style>
</head>
<body>
<h1>Button Sensor</h1>

<h2>Button</h2>
<table>
<tr><th>State</th><td id="state" class="{{stateClass .Button.State}}">{{.Button.State}}</td></tr>
<tr><th>Clicks in progress</th><td id="raw-clicks">{{.Button.RawClicks}}</td></tr>
<tr><th>Holding</th><td id="holding">{{if .Button.IsHolding}}{{ms .Button.Holding}}ms{{else}}no{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
{{if .PinError}}<tr><th>Pin error</th><td class="error">{{.PinError}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Encoding</th><td>{{.Config.Encoding}}</td></tr>
</table>

<h2>Events since startup</h2>
<table>
<tr><th>Click</th><td>{{.Counts.Click}}</td></tr>
<tr><th>Double click</th><td>{{.Counts.DoubleClick}}</td></tr>
<tr><th>Triple click</th><td>{{.Counts.TripleClick}}</td></tr>
<tr><th>Multi click</th><td>{{.Counts.MultiClick}}</td></tr>
<tr><th>Hold start</th><td>{{.Counts.HoldStart}}</td></tr>
<tr><th>Hold end</th><td>{{.Counts.HoldEnd}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Mode</th><td>{{.Config.Mode}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms ({{.Config.Debouncer}})</td></tr>
<tr><th>Release</th><td>{{.Config.ReleaseMs}}ms</td></tr>
<tr><th>Hold</th><td>{{.Config.HoldMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<script>
(function() {
  var down = ["DOWN", "PRESSED", "HELD"];
  function refresh() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(j) {
      var s = j.status;
      var el = document.getElementById("state");
      el.textContent = s.state;
      el.className = s.state === "UNKNOWN" ? "unknown" : (down.indexOf(s.state) >= 0 ? "down" : "up");
      document.getElementById("raw-clicks").textContent = s.raw_clicks;
      document.getElementById("holding").textContent = s.holding_ms === undefined ? "no" : s.holding_ms + "ms";
    }).catch(function() {});
  }
  setInterval(refresh, 250);
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}

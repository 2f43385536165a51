package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/binwatch/internal/eventlog"
	"github.com/sweeney/binwatch/internal/status"
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
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"clock": func(t time.Time) string {
		return t.UTC().Format("15:04:05")
	},
	"ms": func(d time.Duration) int64 {
		return d.Milliseconds()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Bin Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.alarm { color: red; font-weight: bold; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
form { display: inline; }
</style>
</head>
<body>
<h1>Bin Monitor {{.Config.DeviceID}}<span id="live-dot" class="live-dot pending" title="polling"></span></h1>

<h2>State</h2>
<table>
<tr><th>Fire</th><td id="fire" class="{{if .Flame.Detected}}alarm{{else}}off{{end}}">{{if .Flame.Detected}}DETECTED{{else}}clear{{end}}</td></tr>
<tr><th>Intensity</th><td id="intensity">{{printf "%.0f" .Flame.Intensity}} / {{.Flame.Threshold}}</td></tr>
<tr><th>Fill</th><td id="fill" class="{{if .Fill.Latched}}alarm{{else}}off{{end}}">{{.FillPercent}}%</td></tr>
<tr><th>Tilt</th><td id="tilt" class="{{if .Tilt.Latched}}alarm{{else}}off{{end}}">{{if .Tilt.Latched}}TILTED{{else}}upright{{end}}</td></tr>
<tr><th>Sensors</th><td class="{{if .SensorFault}}alarm{{else}}on{{end}}">{{if .SensorFault}}FAULT{{else}}ok{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Outputs</h2>
<table>
<tr><th>Red</th><td id="red">{{onOff .Actuation.Red}}</td></tr>
<tr><th>Green</th><td id="green">{{onOff .Actuation.Green}}</td></tr>
<tr><th>Buzzer</th><td id="buzzer">{{onOff .Actuation.Buzzer}} ({{.Actuation.Phase}})</td></tr>
<tr><th>Muted</th><td>{{if .Actuation.Muted}}yes{{else}}no{{end}}</td></tr>
<tr><th>Silenced</th><td>{{if .Silenced}}until {{clock .Actuation.SilencedUntil}}{{else}}no{{end}}</td></tr>
</table>
<p>
<form method="post" action="/command/mute"><button>Mute</button></form>
<form method="post" action="/command/unmute"><button>Unmute</button></form>
<form method="post" action="/command/silence"><button>Silence 10m</button></form>
<form method="post" action="/command/unsilence"><button>Unsilence</button></form>
</p>

<h2>Filtering</h2>
<table>
<tr><th>Fill quorum</th><td>{{.Fill.Quorum}}/{{.Fill.BurstSize}} ({{.Fill.ActiveCount}} active, {{.Fill.Polarity}})</td></tr>
<tr><th>Fill windows</th><td>{{ms .Fill.Stability}}ms / {{ms .Fill.OnConfirm}}ms / {{ms .Fill.OffConfirm}}ms</td></tr>
<tr><th>Tilt quorum</th><td>{{.Tilt.Quorum}}/{{.Tilt.BurstSize}} ({{.Tilt.ActiveCount}} active, {{.Tilt.Polarity}})</td></tr>
<tr><th>Tilt windows</th><td>{{ms .Tilt.Stability}}ms / {{ms .Tilt.OnConfirm}}ms / {{ms .Tilt.OffConfirm}}ms</td></tr>
</table>

<h2>Climate</h2>
<table>
{{if .Climate.LastGood.IsZero}}<tr><th>Reading</th><td class="off">unavailable</td></tr>
{{else}}<tr><th>Temperature</th><td>{{printf "%.1f" .Climate.TemperatureC}}&deg;C{{if not .Climate.OK}} (stale){{end}}</td></tr>
<tr><th>Humidity</th><td>{{printf "%.0f" .Climate.HumidityPct}}%</td></tr>{{end}}
</table>

<h2>Events</h2>
<table>
{{range .Events}}<tr><th>{{clock .Timestamp}}</th><td>{{.Message}}</td></tr>
{{else}}<tr><td>none</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>
{{if .Network.SignalDBm}}<tr><th>Signal</th><td>{{.Network.SignalDBm}} dBm</td></tr>{{end}}{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sample</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Aux</th><td>{{.Config.AuxMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/events.json">Events</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function set(id, text, alarm) {
    var el = document.getElementById(id);
    el.textContent = text;
    if (alarm !== undefined) el.className = alarm ? "alarm" : "off";
  }
  function onOff(b) { return b ? "ON" : "OFF"; }
  function poll() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(j) {
      var s = j.status;
      set("fire", s.fire.detected ? "DETECTED" : "clear", s.fire.detected);
      set("intensity", Math.round(s.fire.intensity) + " / " + s.fire.threshold);
      set("fill", s.fill.percent + "%", s.fill.active);
      set("tilt", s.tilt.active ? "TILTED" : "upright", s.tilt.active);
      set("red", onOff(s.outputs.red));
      set("green", onOff(s.outputs.green));
      set("buzzer", onOff(s.outputs.buzzer) + " (" + s.outputs.phase + ")");
      dot.className = "live-dot ok";
    }).catch(function() {
      dot.className = "live-dot err";
    });
  }
  setInterval(poll, 1000);
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, events []eventlog.Entry) error {
	// Snapshot has Uptime()/Silenced() methods; the template needs plain fields
	// for the ones it formats.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Events []eventlog.Entry
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Events:   events,
	}
	return indexTmpl.Execute(w, data)
}

package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/soundscape/internal/logic"
	"github.com/sweeney/soundscape/internal/status"
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
	"level": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
	"orDash": func(s logic.SceneID) string {
		if s == "" {
			return "-"
		}
		return string(s)
	},
	"seconds": func(d time.Duration) string {
		return fmt.Sprintf("%.1fs", d.Seconds())
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Soundscape</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.locked { color: #a60; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Soundscape{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Context</h2>
{{if .HasContext}}<table>
<tr><th>Geo</th><td id="ctx-geo">{{.Context.GeoTag}}</td></tr>
<tr><th>Time</th><td id="ctx-time">{{.Context.TimeBand}}</td></tr>
<tr><th>Weather</th><td id="ctx-weather">{{.Context.Weather}}</td></tr>
<tr><th>Motion</th><td id="ctx-motion">{{.Context.Motion}}</td></tr>
<tr><th>Cadence</th><td id="ctx-cadence">{{.Context.Cadence}}</td></tr>
</table>{{else}}<p>waiting for first tick</p>{{end}}

<h2>Scene</h2>
<table>
<tr><th>Current</th><td id="scene-current">{{orDash .Classification.Current}}</td></tr>
<tr><th>Candidate</th><td id="scene-candidate">{{orDash .Classification.Candidate}}</td></tr>
<tr><th>Lock</th><td id="scene-lock"{{if .Classification.Locked}} class="locked"{{end}}>{{if .Classification.Locked}}{{seconds .Classification.LockRemaining}}{{else}}-{{end}}</td></tr>
</table>

<h2>Playback</h2>
{{if .HasPlan}}<table>
<tr><th>Preset</th><td id="plan-preset">{{orDash .Classification.Current}}</td></tr>
<tr><th>Pad</th><td id="plan-pad">{{level .Plan.Pad}}</td></tr>
<tr><th>Arp</th><td id="plan-arp">{{level .Plan.Arp}}</td></tr>
<tr><th>Beat</th><td id="plan-beat">{{level .Plan.Beat}}</td></tr>
<tr><th>FX</th><td id="plan-fx">{{level .Plan.FX}}</td></tr>
<tr><th>Field noise</th><td id="plan-field">{{level .Plan.FieldNoise}}</td></tr>
<tr><th>Tempo</th><td id="plan-bpm">{{printf "%.1f" .Plan.BaseBPM}} bpm</td></tr>
<tr><th>Filter</th><td id="plan-filter">{{level .Plan.Filter}}</td></tr>
<tr><th>Reverb</th><td id="plan-reverb">{{level .Plan.Reverb}}</td></tr>
</table>{{else}}<p>no scene confirmed yet</p>{{end}}

<h2>Confirmations</h2>
<table>
{{range .SceneCounts}}<tr><th>{{.Scene}}</th><td>{{.Count}}</td></tr>
{{end}}</table>

<h2>System</h2>
<table>
<tr><th>Session</th><td>{{.SessionID}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Lock</th><td>{{.Config.LockMs}}ms</td></tr>
<tr><th>Hysteresis</th><td>{{.Config.HysteresisMs}}ms</td></tr>
<tr><th>Fences</th><td>{{.Config.Fences}}</td></tr>
<tr><th>Step sensor</th><td>{{if .Config.Motion}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function set(id, v) {
    var el = document.getElementById(id);
    if (el) { el.textContent = (v === null || v === undefined || v === "") ? "-" : v; }
  }
  function level(v) { return v.toFixed(2); }
  function apply(s) {
    if (s.context) {
      set("ctx-geo", s.context.geo_tag);
      set("ctx-time", s.context.time_band);
      set("ctx-weather", s.context.weather);
      set("ctx-motion", s.context.motion);
      set("ctx-cadence", s.context.cadence);
    }
    set("scene-current", s.scene.current);
    set("scene-candidate", s.scene.candidate);
    set("scene-lock", s.scene.locked ? (s.scene.lock_remaining_ms / 1000).toFixed(1) + "s" : "-");
    if (s.plan) {
      set("plan-preset", s.plan.scene);
      set("plan-pad", level(s.plan.pad));
      set("plan-arp", level(s.plan.arp));
      set("plan-beat", level(s.plan.beat));
      set("plan-fx", level(s.plan.fx));
      set("plan-field", level(s.plan.field_noise));
      set("plan-bpm", s.plan.base_bpm.toFixed(1) + " bpm");
      set("plan-filter", level(s.plan.filter));
      set("plan-reverb", level(s.plan.reverb));
    }
  }
  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { dot.className = "live-dot ok"; dot.title = "live"; };
    ws.onclose = function() {
      dot.className = "live-dot err"; dot.title = "offline";
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.type === "status_init" || msg.type === "status") { apply(msg.data); }
      } catch (e) {}
    };
  }
  connect();
})();
</script>
{{end}}
</body>
</html>
`

type sceneCount struct {
	Scene logic.SceneID
	Count int
}

func renderHTML(w io.Writer, snap status.Snapshot, live bool) error {
	counts := make([]sceneCount, 0, len(logic.Scenes))
	for _, s := range logic.Scenes {
		counts = append(counts, sceneCount{Scene: s, Count: snap.Counts[s]})
	}

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime      time.Duration
		SceneCounts []sceneCount
		Live        bool
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		SceneCounts: counts,
		Live:        live,
	}
	return indexTmpl.Execute(w, data)
}

package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sweeney/binwatch/internal/control"
	"github.com/sweeney/binwatch/internal/eventlog"
	"github.com/sweeney/binwatch/internal/gpio"
	"github.com/sweeney/binwatch/internal/monitor"
	"github.com/sweeney/binwatch/internal/mqtt"
	"github.com/sweeney/binwatch/internal/status"
	"github.com/sweeney/binwatch/internal/web"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// daemon wires the same components as cmd/binwatch, with fakes at the edges.
// The test goroutine plays the control loop: it calls Iterate and services
// the command queue itself, so every step is deterministic.
type daemon struct {
	now     time.Time
	sampler *gpio.FakeSampler
	outputs *gpio.FakeOutputs
	events  *eventlog.Log
	tracker *status.Tracker
	queue   *control.Queue
	pub     *mqtt.FakePublisher
	mon     *monitor.Monitor
	ts      *httptest.Server
}

func newDaemon(t *testing.T) *daemon {
	t.Helper()
	d := &daemon{
		now:     t0,
		sampler: gpio.NewFakeSampler(),
		outputs: gpio.NewFakeOutputs(),
		events:  eventlog.New(eventlog.DefaultCapacity),
		queue:   control.NewQueue(4),
		pub:     mqtt.NewFakePublisher(),
	}
	t.Cleanup(d.queue.Close)

	// Idle bin: flame and fill are active-low, so their lines sit high.
	d.sampler.SetFlame(true, 150)
	d.sampler.SetFill(true)
	d.pub.SetConnected(true)

	cfg := status.Config{DeviceID: "bin-7", SampleMs: 50, AuxMs: 2000, LoopMs: 10, Broker: "tcp://broker:1883"}
	d.tracker = status.NewTracker(t0, cfg)
	d.events.Observe(mqtt.ForwardEvents(d.pub))

	proc := control.NewProcessor(control.NewTunables(control.DefaultDefaults()), d.events)
	d.mon = monitor.New(monitor.Config{
		SampleInterval: 50 * time.Millisecond,
		AuxInterval:    2 * time.Second,
		TopMounted:     true,
		Status:         cfg,
	}, monitor.Deps{
		Sampler:   d.sampler,
		Outputs:   d.outputs,
		Processor: proc,
		Events:    d.events,
		Tracker:   d.tracker,
		Connected: d.pub.IsConnected,
		Now:       func() time.Time { return d.now },
		Sleep:     func(time.Duration) {},
	})

	d.ts = httptest.NewServer(web.New(":0", d.tracker, d.events, d.queue).Handler())
	t.Cleanup(d.ts.Close)
	return d
}

// run iterates the loop every 10ms for total.
func (d *daemon) run(total time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += 10 * time.Millisecond {
		d.now = d.now.Add(10 * time.Millisecond)
		d.mon.Iterate(d.now)
	}
}

// serve applies exactly one queued command, as the loop would between ticks.
func (d *daemon) serve(t *testing.T) {
	t.Helper()
	select {
	case req := <-d.queue.Requests():
		d.mon.Handle(req)
	case <-time.After(2 * time.Second):
		t.Fatal("no command arrived on the queue")
	}
}

// post sends an HTTP command and services it.
func (d *daemon) post(t *testing.T, name string, form url.Values) int {
	t.Helper()
	code := make(chan int, 1)
	go func() {
		resp, err := http.PostForm(d.ts.URL+"/command/"+name, form)
		if err != nil {
			code <- 0
			return
		}
		resp.Body.Close()
		code <- resp.StatusCode
	}()
	d.serve(t)
	return <-code
}

func (d *daemon) status(t *testing.T) status.StatusInner {
	t.Helper()
	resp, err := http.Get(d.ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return sj.Status
}

func (d *daemon) published() []string {
	var out []string
	for _, e := range d.pub.Events {
		out = append(out, e.Message)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestIntegrationFullFlow drives a bin through filling, a fire and an
// operator mute, checking the HTTP and MQTT surfaces along the way.
func TestIntegrationFullFlow(t *testing.T) {
	d := newDaemon(t)

	if d.status(t).Ready {
		t.Fatal("status should not be ready before the first iteration")
	}

	d.mon.Iterate(d.now)
	d.run(time.Second)

	st := d.status(t)
	if !st.Ready || st.Fire.Detected || st.Fill.Percent != 0 {
		t.Fatalf("idle status: %+v", st)
	}
	if !st.Outputs.Green || st.Outputs.Red {
		t.Errorf("idle outputs: %+v", st.Outputs)
	}
	if d.events.Len() != 0 {
		t.Errorf("expected no events while idle, got %v", d.events.Entries())
	}

	// Bin fills up.
	d.sampler.SetFill(false)
	d.run(2 * time.Second)

	st = d.status(t)
	if !st.Fill.Active || st.Fill.Percent != 100 {
		t.Errorf("fill after latch: %+v", st.Fill)
	}

	// Fire.
	d.sampler.SetFlame(false, 900)
	d.run(60 * time.Millisecond)

	st = d.status(t)
	if !st.Fire.Detected {
		t.Error("expected fire detected")
	}
	if !st.Outputs.Red || st.Outputs.Green {
		t.Errorf("alarm outputs: %+v", st.Outputs)
	}

	// Operator mutes over HTTP.
	if code := d.post(t, "mute", nil); code != http.StatusOK {
		t.Fatalf("mute: got %d, want 200", code)
	}
	d.run(time.Second)

	st = d.status(t)
	if !st.Outputs.Muted || st.Outputs.Buzzer {
		t.Errorf("muted outputs: %+v", st.Outputs)
	}
	if last, _ := d.outputs.Last(); last.Buzzer || !last.Red {
		t.Errorf("physical outputs after mute: %+v", last)
	}

	want := []string{"Fill stable -> ACTIVE", "BIN FULL", "FIRE DETECTED", "Buzzer muted"}
	if got := d.published(); !equalStrings(got, want) {
		t.Errorf("MQTT events: got %v, want %v", got, want)
	}

	resp, err := http.Get(d.ts.URL + "/events.json")
	if err != nil {
		t.Fatalf("GET /events.json: %v", err)
	}
	defer resp.Body.Close()
	var ej status.EventsJSON
	if err := json.NewDecoder(resp.Body).Decode(&ej); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if ej.Count != len(want) {
		t.Errorf("events.json count: got %d, want %d", ej.Count, len(want))
	}
}

func TestIntegrationRejectedCommandChangesNothing(t *testing.T) {
	d := newDaemon(t)
	d.mon.Iterate(d.now)

	if code := d.post(t, "set_quorum", url.Values{"value": {"40"}}); code != http.StatusBadRequest {
		t.Fatalf("set_quorum 40: got %d, want 400", code)
	}
	d.run(60 * time.Millisecond)

	if q := d.status(t).Fill.Quorum; q != 12 {
		t.Errorf("quorum: got %d, want 12", q)
	}
	if d.events.Len() != 0 {
		t.Errorf("rejected command should not be logged: %v", d.events.Entries())
	}
}

func TestIntegrationMQTTCommand(t *testing.T) {
	d := newDaemon(t)
	d.mon.Iterate(d.now)

	errCh := make(chan error, 1)
	go func() {
		errCh <- mqtt.HandleCommand(context.Background(), d.queue,
			[]byte(`{"command":"set_quorum","params":{"value":9}}`), 2*time.Second)
	}()
	d.serve(t)
	if err := <-errCh; err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	d.run(60 * time.Millisecond)

	if q := d.status(t).Fill.Quorum; q != 9 {
		t.Errorf("quorum: got %d, want 9", q)
	}
	if got := d.published(); !equalStrings(got, []string{"Fill quorum set to 9/15"}) {
		t.Errorf("MQTT events: got %v", got)
	}
}

func TestIntegrationTelemetry(t *testing.T) {
	d := newDaemon(t)
	d.sampler.SetTilt(true)
	d.mon.Iterate(d.now)
	d.run(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	done := make(chan struct{})
	go func() {
		mqtt.RunTelemetry(ctx, d.pub, d.pub, d.tracker, tick)
		close(done)
	}()
	tick <- t0
	cancel()
	<-done

	if d.pub.TelemetryCount() != 1 {
		t.Fatalf("telemetry pushes: got %d, want 1", d.pub.TelemetryCount())
	}
	var sj status.StatusJSON
	if err := json.Unmarshal(d.pub.Telemetry[0], &sj); err != nil {
		t.Fatalf("telemetry payload: %v", err)
	}
	if !sj.Status.Tilt.Active || sj.Status.Config.DeviceID != "bin-7" {
		t.Errorf("telemetry: tilt=%v device=%q", sj.Status.Tilt.Active, sj.Status.Config.DeviceID)
	}
}

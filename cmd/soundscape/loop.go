package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/soundscape/internal/geo"
	"github.com/sweeney/soundscape/internal/gpio"
	"github.com/sweeney/soundscape/internal/logic"
	"github.com/sweeney/soundscape/internal/motion"
	"github.com/sweeney/soundscape/internal/mqtt"
	"github.com/sweeney/soundscape/internal/score"
	"github.com/sweeney/soundscape/internal/status"
	"github.com/sweeney/soundscape/internal/web"
)

// loop owns the per-tick pipeline: gather inputs, classify, plan, publish.
// Everything here runs on one goroutine. inputs, steps, meter, mqttStatus,
// tracker and hub may be nil.
type loop struct {
	matcher    *geo.Matcher
	classifier *logic.Classifier
	planner    *score.Planner

	inputs    *mqtt.Inputs
	steps     gpio.Reader
	meter     *motion.Meter
	motionTTL time.Duration

	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	hub        *web.Hub

	heartbeat time.Duration
	logger    *slog.Logger

	plan    score.Plan
	hasPlan bool
}

// run processes ticks until a signal arrives. sample drives the step sensor
// and may be nil.
func (l *loop) run(now func() time.Time, tick, sample <-chan time.Time, sig <-chan os.Signal) error {
	if l.logger == nil {
		l.logger = slog.Default()
	}
	hb := logic.NewHeartbeat(now())

	for {
		select {
		case s := <-sig:
			l.logger.Info("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if l.tracker != nil {
				l.refreshConnected()
				event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := l.publisher.PublishSystem(event); err != nil {
				l.logger.Warn("failed to publish shutdown event", "error", err)
			} else {
				l.logger.Info("published shutdown event")
			}
			return nil

		case <-sample:
			if l.steps == nil || l.meter == nil {
				continue
			}
			level, err := l.steps.Read()
			if err != nil {
				l.logger.Warn("step sensor read error", "error", err)
				continue
			}
			l.meter.Observe(level, now())

		case <-tick:
			t := now()
			l.step(t)

			if hbData := hb.Check(t, l.heartbeat, l.classifier.Counts()); hbData != nil {
				l.logger.Info("heartbeat",
					"uptime", hbData.Uptime,
					"scene", l.classifier.Current(),
					"confirmations", total(hbData.Counts))

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if l.tracker != nil {
					hbEvent.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := l.publisher.PublishSystem(hbEvent); err != nil {
					l.logger.Warn("heartbeat publish error", "error", err)
				}
			}
		}
	}
}

// step runs one classification tick at t.
func (l *loop) step(t time.Time) {
	m, cadence := l.motion(t)
	snap := logic.NewSnapshot(l.geoTag(t), logic.TimeBandAt(t), l.weather(), m, cadence, t)

	previous := l.classifier.Current()
	cls := l.classifier.Classify(snap, t)
	l.logger.Debug("tick",
		"geo", snap.GeoTag,
		"time", snap.TimeBand,
		"weather", snap.Weather,
		"motion", snap.Motion,
		"cadence", snap.Cadence,
		"current", cls.Current,
		"candidate", cls.Candidate,
		"lock_remaining", cls.LockRemaining)

	if cls.Confirmed {
		event := logic.SceneEvent{Timestamp: t, Scene: cls.Current, Previous: previous}
		l.logger.Info("scene confirmed", "scene", event.Scene, "previous", event.Previous)
		if err := l.publisher.PublishScene(event); err != nil {
			l.logger.Warn("scene publish error", "error", err)
		}
		if l.hub != nil {
			if payload, err := mqtt.FormatScenePayload(event); err == nil {
				l.hub.Publish(web.TypeSceneConfirmed, t, json.RawMessage(payload))
			}
		}
	}

	if cls.Current != "" {
		plan := l.planner.Plan(cls.Current, snap.Motion, snap.Cadence)
		if !l.hasPlan || plan != l.plan || cls.Confirmed {
			l.plan, l.hasPlan = plan, true
			if err := l.publisher.PublishPlan(mqtt.PlanEvent{Timestamp: t, Scene: cls.Current, Plan: plan}); err != nil {
				l.logger.Warn("plan publish error", "error", err)
			}
			if l.hub != nil {
				l.hub.Publish(web.TypePlan, t, status.PlanJSON{Scene: string(cls.Current), Plan: plan})
			}
		}
	}

	if l.tracker != nil {
		l.tracker.Update(snap, cls, l.plan, l.hasPlan, l.classifier.Counts())
		l.refreshConnected()
		if l.hub != nil {
			l.hub.Publish(web.TypeStatus, t, status.Build(l.tracker.Snapshot()))
		}
	}
}

// geoTag feeds the latest reported position to the matcher. Without a
// position the matcher keeps its current tag.
func (l *loop) geoTag(t time.Time) logic.GeoTag {
	if l.inputs != nil {
		if loc, ok := l.inputs.Location(); ok {
			return l.matcher.Match(loc.Latitude, loc.Longitude, t)
		}
	}
	return l.matcher.Current()
}

func (l *loop) weather() logic.Weather {
	if l.inputs != nil {
		if w, ok := l.inputs.Weather(); ok {
			return w.Weather
		}
	}
	return logic.WeatherClear
}

// motion picks the freshest motion source. A report on the motion topic
// wins while it is younger than motionTTL; otherwise the step sensor is
// used. With neither, the listener is idle and cadence is absent.
func (l *loop) motion(t time.Time) (logic.Motion, logic.Cadence) {
	var (
		reported   mqtt.MotionInput
		hasReport  bool
		haveSensor = l.steps != nil && l.meter != nil
	)
	if l.inputs != nil {
		reported, hasReport = l.inputs.Motion()
	}

	if hasReport && (!haveSensor || t.Sub(reported.At) < l.motionTTL) {
		return reported.Motion, reported.Cadence
	}
	if haveSensor {
		return l.meter.Reading(t)
	}
	return logic.MotionIdle, logic.NoCadence
}

func (l *loop) refreshConnected() {
	if l.tracker != nil && l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func total(counts map[logic.SceneID]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/drishti-ai/drishti/internal/assistant"
	"github.com/drishti-ai/drishti/internal/audio"
	"github.com/drishti-ai/drishti/internal/camera"
	"github.com/drishti-ai/drishti/internal/compose"
	"github.com/drishti-ai/drishti/internal/config"
	"github.com/drishti-ai/drishti/internal/describe"
	"github.com/drishti-ai/drishti/internal/emergency"
	"github.com/drishti-ai/drishti/internal/feedback"
	"github.com/drishti-ai/drishti/internal/hazard"
	"github.com/drishti-ai/drishti/internal/health"
	"github.com/drishti-ai/drishti/internal/intent"
	"github.com/drishti-ai/drishti/internal/locale"
	"github.com/drishti-ai/drishti/internal/metrics"
	"github.com/drishti-ai/drishti/internal/output"
	"github.com/drishti-ai/drishti/internal/pipeline"
	"github.com/drishti-ai/drishti/internal/speech"
	"github.com/drishti-ai/drishti/internal/vision"
)

// services is the fully wired assistant for one process.
type services struct {
	controller *assistant.Controller
	monitor    *emergency.Monitor
	metrics    *metrics.Recorder
	health     *health.Server
}

// overrides replaces real devices and services in tests.
type overrides struct {
	camera    pipeline.Capturer
	analyzer  pipeline.Analyzer
	describer describe.Describer
	speaker   speech.Speaker
	fallback  speech.Speaker
	player    audio.Player
	listener  assistant.Listener
}

func build(cfg config.Config, logger *slog.Logger, o overrides) (*services, error) {
	rec := metrics.New()
	healthServer := health.NewServer(logger)
	msgs := locale.For(cfg.Language)

	player := o.player
	if player == nil {
		player = audio.PulsePlayer{MediaName: "drishti speech"}
	}

	speechOpts := speech.Options{
		Region:      cfg.Speech.Region,
		Key:         cfg.Speech.Key,
		STTEndpoint: cfg.Speech.STTEndpoint,
		TTSEndpoint: cfg.Speech.TTSEndpoint,
		Language:    cfg.Language,
		Voice:       cfg.Speech.Voice,
		Timeout:     millis(cfg.Speech.TimeoutMS),
	}

	var primary speech.Speaker = o.speaker
	if primary == nil {
		primary = speech.NewSynthesizer(speechOpts, player)
	}
	var fallback speech.Speaker = o.fallback
	if fallback == nil {
		fallback = speech.NewFallback(cfg.Speech.Fallback.Argv)
	}

	var capturer pipeline.Capturer = o.camera
	if capturer == nil {
		capturer = camera.New(camera.Options{
			Device:       cfg.Capture.Device,
			Argv:         cfg.Capture.Command.Argv,
			MaxDimension: cfg.Capture.MaxDimension,
			JPEGQuality:  cfg.Capture.JPEGQuality,
		})
	}

	var analyzer pipeline.Analyzer = o.analyzer
	if analyzer == nil {
		analyzer = vision.New(vision.Options{
			Endpoint: cfg.Vision.Endpoint,
			Key:      cfg.Vision.Key,
			API:      cfg.Vision.API,
			Features: cfg.Vision.Features,
			Language: cfg.Vision.Language,
			Timeout:  millis(cfg.Vision.TimeoutMS),
		})
	}

	describer := o.describer
	if describer == nil {
		d, err := describe.New(describe.Options{
			Backend:     cfg.Description.Backend,
			Endpoint:    cfg.Description.Endpoint,
			Key:         cfg.Description.Key,
			Deployment:  cfg.Description.Deployment,
			APIVersion:  cfg.Description.APIVersion,
			Model:       cfg.Description.Model,
			MaxTokens:   cfg.Description.MaxTokens,
			Temperature: cfg.Description.Temperature,
			Timeout:     millis(cfg.Description.TimeoutMS),
		})
		if err != nil {
			return nil, fmt.Errorf("build describer: %w", err)
		}
		describer = d
	}

	display := feedback.New(cfg.Feedback, player, logger)

	orchestrator, err := pipeline.New(pipeline.Deps{
		Camera:    capturer,
		Analyzer:  analyzer,
		Composer:  compose.New(cfg.Description.System, cfg.Description.Language, cfg.Description.MaxSentences),
		Describer: describer,
		Hazards:   hazard.NewDetector(hazardTable(cfg.Hazards)),
		Speaker:   primary,
		Fallback:  fallback,
		Display:   display,
		Messages:  msgs,
		Timeouts: pipeline.Timeouts{
			Capture:    millis(cfg.Capture.TimeoutMS),
			Analysis:   millis(cfg.Vision.TimeoutMS),
			Generation: millis(cfg.Description.TimeoutMS),
			Synthesis:  millis(cfg.Speech.SynthTimeoutMS),
		},
		Metrics: rec,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	monitor := emergency.NewMonitor(orchestrator, emergency.Options{
		Interval:   millis(cfg.Emergency.IntervalMS),
		Metrics:    rec,
		Logger:     logger,
		OnActivity: healthServer.SetEmergency,
	})

	listener := o.listener
	if listener == nil {
		listener = speech.NewListener(speech.ListenerOptions{
			Input: cfg.Speech.Input,
			Utterance: audio.UtteranceOptions{
				MaxDuration: millis(cfg.Speech.MaxListenMS),
				Silence:     millis(cfg.Speech.SilenceMS),
			},
		}, speech.NewRecognizer(speechOpts), logger)
	}

	controller, err := assistant.New(assistant.Deps{
		Interpreter: intent.NewInterpreter(intent.Keywords{
			Scan:     cfg.Commands.Scan,
			Read:     cfg.Commands.Read,
			Navigate: cfg.Commands.Navigate,
			Help:     cfg.Commands.Help,
		}),
		Pipeline: orchestrator,
		Listener: listener,
		Speaker: speech.Chain{
			Primary:    primary,
			Fallback:   fallback,
			OnFallback: rec.ObserveSpeechFallback,
			Logger:     logger,
		},
		Feedback: display,
		Monitor:  monitor,
		Notifier: output.NewContactNotifier(cfg.Emergency.NotifyCmd.Argv, logger),
		Messages: msgs,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	return &services{controller: controller, monitor: monitor, metrics: rec, health: healthServer}, nil
}

func hazardTable(entries []config.HazardEntry) []hazard.Entry {
	table := make([]hazard.Entry, 0, len(entries))
	for _, e := range entries {
		table = append(table, hazard.Entry{Keyword: e.Keyword, Label: e.Label})
	}
	return table
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

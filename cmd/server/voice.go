package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webmcp-bridge/internal/apps/catalog"
	"webmcp-bridge/internal/config"
	"webmcp-bridge/internal/logging"
	"webmcp-bridge/internal/metrics"
	"webmcp-bridge/internal/voice"
	"webmcp-bridge/internal/web"
)

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Talk to one app through the live streaming API",
	Long: `voice connects the live API to one app's MCP server: the model sees the app's tools and
every tool call it makes is run against the app. Lines typed on stdin are sent as user turns;
"/quit" ends the session. With --listen the app's page is served too, so its regions can be
watched changing while the model works.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		appName, _ := cmd.Flags().GetString("app")
		listen, _ := cmd.Flags().GetString("listen")
		audioOut, _ := cmd.Flags().GetString("audio-out")
		if !config.IsKnownApp(appName) {
			return fmt.Errorf("unknown app %q", appName)
		}
		if cfg.Voice.APIKey == "" {
			return errors.New("voice.api_key is empty; set GEMINI_API_KEY")
		}

		logger := logging.NewForMode(cfg.Server.LogLevel, cfg.Server.LogFile, cfg.Server.Development, true)
		defer func() { _ = logger.Sync() }()

		return runVoice(cmd.Context(), cfg, voiceRun{
			app:      appName,
			listen:   listen,
			audioOut: audioOut,
			in:       cmd.InOrStdin(),
			out:      cmd.OutOrStdout(),
		}, logger)
	},
}

func init() {
	rootCmd.AddCommand(voiceCmd)
	voiceCmd.Flags().String("app", "tasks", "App whose tools the model may call")
	voiceCmd.Flags().String("listen", "", "Also serve the app's page on this address (e.g. :8788)")
	voiceCmd.Flags().String("audio-out", "", "Append received PCM audio to this file")
}

type voiceRun struct {
	app      string
	listen   string
	audioOut string
	in       io.Reader
	out      io.Writer
}

func runVoice(ctx context.Context, cfg config.Config, run voiceRun, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New()
	opts := catalog.Options{
		ServerName:      cfg.Server.Name,
		Version:         cfg.Server.Version,
		ReadyTimeout:    cfg.Bridge.Ready(),
		NotificationTTL: cfg.Bridge.TTL(),
		Logger:          logger,
		Metrics:         m,
	}
	frames := m.VoiceFrame
	if cfg.Recorder.Enable {
		rec, err := startRecorder(cfg.Recorder.Dir)
		if err != nil {
			return err
		}
		defer rec.Close()
		opts.Recorder = rec
		record := rec.VoiceFrames(run.app)
		frames = func(direction, kind string) {
			m.VoiceFrame(direction, kind)
			record(direction, kind)
		}
		logger.Info("flight recorder enabled", zap.String("trace", rec.Path()))
	}

	rt, err := catalog.Start(ctx, run.app, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	if run.listen != "" {
		srv := web.New([]*catalog.Runtime{rt}, web.Options{Logger: logger, Metrics: m})
		go func() {
			if err := web.ListenAndServe(ctx, run.listen, srv, cfg.HTTP.Shutdown()); err != nil {
				logger.Warn("page server stopped", zap.Error(err))
			}
		}()
		fmt.Fprintf(run.out, "page: http://localhost%s/apps/%s/\n", run.listen, run.app)
	}

	mcpClient, err := voice.DialInProcess(ctx, rt.Dispatcher, cfg.Server.Name+"-voice")
	if err != nil {
		return err
	}
	defer mcpClient.Close()

	var audio io.WriteCloser
	if run.audioOut != "" {
		f, err := os.OpenFile(run.audioOut, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open audio output: %w", err)
		}
		defer f.Close()
		audio = f
	}

	closed := make(chan string, 1)
	live := voice.NewClient(cfg.Voice.Endpoint, cfg.Voice.APIKey,
		voice.WithLogger(logger),
		voice.WithDialTimeout(cfg.Voice.Dial()),
		voice.WithFrameObserver(frames),
		voice.WithConnectionObserver(m.VoiceConnected),
		voice.WithHandlers(voice.Handlers{
			OnSetupComplete: func() { fmt.Fprintln(run.out, "[connected]") },
			OnContent:       func(text string) { fmt.Fprint(run.out, text) },
			OnTurnComplete:  func(string) { fmt.Fprintln(run.out) },
			OnInterrupted:   func() { fmt.Fprintln(run.out, "[interrupted]") },
			OnAudio: func(pcm []byte) {
				if audio != nil {
					_, _ = audio.Write(pcm)
				}
			},
			OnClose: func(reason string) { closed <- reason },
		}))

	base := voice.NewLiveConfig(cfg.Voice.Model, cfg.Voice.ResponseModality, cfg.Voice.Voice, cfg.Voice.SystemInstruction)
	agent := voice.NewAgent(live, base, logger)
	agent.OnCall = func(call voice.FunctionCall, resp voice.FunctionResponse) {
		if opts.Recorder != nil {
			opts.Recorder.VoiceCall(run.app, call.ID, call.Name, call.Args, resp.Response)
		}
		fmt.Fprintf(run.out, "[tool %s]\n", call.Name)
	}
	if err := agent.Attach(ctx, mcpClient); err != nil {
		return err
	}
	if err := agent.Connect(ctx); err != nil {
		return err
	}
	defer live.Disconnect()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(run.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-closed:
			return fmt.Errorf("live session closed: %s", reason)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "/quit":
				return nil
			}
			if err := live.SendText(line); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

// Command monan recognises Vietnamese dishes from a photo and shows what they are.
//
// Usage:
//
//	monan [-verbose] [-quiet] [-gateway onnx|vision] [-image-size 224]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/monan/internal/acquire"
	"github.com/hammamikhairi/monan/internal/assets"
	"github.com/hammamikhairi/monan/internal/catalog"
	"github.com/hammamikhairi/monan/internal/controller"
	"github.com/hammamikhairi/monan/internal/conversation"
	"github.com/hammamikhairi/monan/internal/display"
	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/inference"
	"github.com/hammamikhairi/monan/internal/logger"
	"github.com/hammamikhairi/monan/internal/preprocess"
	"github.com/hammamikhairi/monan/internal/speech"
	"github.com/hammamikhairi/monan/internal/vision"
	"github.com/hammamikhairi/monan/internal/watchdog"
)

type options struct {
	verbose, quiet  bool
	logFile         string
	imageSize       int
	topK            int
	gateway         string
	layout          string
	softmax         bool
	classifyTimeout time.Duration
	noSpeech        bool
	cacheDir        string
	libraryDir      string
}

func parseFlags() options {
	var o options
	flag.BoolVar(&o.verbose, "verbose", false, "enable verbose/debug logging")
	flag.BoolVar(&o.quiet, "quiet", false, "disable all logging")
	flag.StringVar(&o.logFile, "log-file", ".monan-logs/monan.log", "file to write logs to (use \"stderr\" to log to console)")
	flag.IntVar(&o.imageSize, "image-size", 224, "side of the square image fed to the model")
	flag.IntVar(&o.topK, "top-k", 5, "predictions kept per classification (0 = all)")
	flag.StringVar(&o.gateway, "gateway", "onnx", "inference gateway: onnx or vision")
	flag.StringVar(&o.layout, "layout", "nchw", "ONNX input layout: nchw or nhwc")
	flag.BoolVar(&o.softmax, "softmax", true, "apply softmax to the ONNX output")
	flag.DurationVar(&o.classifyTimeout, "classify-timeout", 30*time.Second, "fail a classification after this long (0 disables)")
	flag.BoolVar(&o.noSpeech, "no-speech", false, "disable text-to-speech even if Azure keys are set")
	flag.StringVar(&o.cacheDir, "cache-dir", envOr(speech.EnvCacheDir, ".monan-cache"), "directory for persistent TTS audio cache")
	flag.StringVar(&o.libraryDir, "library-dir", "", "directory relative image paths are resolved against")
	flag.Parse()
	return o
}

func main() {
	_ = godotenv.Load()
	opts := parseFlags()

	var logOut io.Writer = os.Stderr
	if opts.logFile != "" && opts.logFile != "stderr" {
		w, err := logger.NewRotatingWriter(opts.logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", opts.logFile, err)
		} else {
			logOut = w
			defer w.Close()
		}
	}

	// Third-party libraries log through the std package.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logger.ParseLevel(opts.verbose, opts.quiet), logOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := catalog.LoadDefault(log.Named("catalog"))
	if err != nil {
		fatal("loading dish catalog: %v", err)
	}
	keys := make([]string, 0, cat.Len())
	for _, r := range cat.List() {
		keys = append(keys, r.ImageKey)
	}
	images := assets.NewRegistry(envOr("MONAN_ASSETS_DIR", "assets"), keys, log.Named("assets"))

	gateway, err := buildGateway(opts, log.Named("gateway"))
	if err != nil {
		fatal("%v", err)
	}
	defer gateway.Close()
	var modelReady atomic.Bool
	modelReady.Store(true)

	cameraCmd := acquire.DefaultCameraCommand
	if s := os.Getenv("MONAN_CAMERA_CMD"); s != "" {
		cameraCmd = acquire.ParseCommand(s)
	}

	app := &cliApp{
		catalog: cat,
		parser:  conversation.NewKeywordParser(log.Named("parser")),
		log:     log,
		gateway: opts.gateway,
	}

	var ctrl *controller.Controller
	ui := display.NewUI(display.Config{
		Status: func() display.Status {
			st := ctrl.State()
			s := display.Status{
				ModelReady: modelReady.Load(),
				Gateway:    opts.gateway,
				Phase:      st.Phase,
				Dishes:     cat.Len(),
			}
			if st.ResolvedRecord != nil {
				s.Dish = st.ResolvedRecord.Name
			}
			return s
		},
		Entries: listEntries(cat, images),
		Images:  images,
		OnClose: func(d display.Detail) { app.onDetailClosed(d) },
	})
	app.ui = ui
	app.prompter = newPrompter(ui)

	textNotifier := conversation.NewTerminalNotifier(ui.Printf)
	voice := buildVoice(ctx, opts, log.Named("speech"))
	app.voice = voice
	app.notifier = speech.NewSpeakingNotifier(textNotifier, voice)

	perms := acquire.NewPermissions(cameraCmd, opts.libraryDir, log.Named("acquire"))
	acquirer := acquire.NewDispatcher(
		acquire.NewCamera(cameraCmd, log.Named("camera")),
		acquire.NewLibrary(app.prompter.Ask, opts.libraryDir, log.Named("library")),
	)

	ctrl = controller.New(cat, perms, acquirer,
		preprocess.New(log.Named("preprocess")),
		gateway,
		log.Named("controller"),
		controller.WithTargetSize(opts.imageSize),
		controller.WithObserver(app),
		controller.WithObserver(speech.NewNarrator(voice, log.Named("narrator"))),
	)
	app.engine = ctrl

	wd := watchdog.New(ctrl, opts.classifyTimeout, log.Named("watchdog"),
		watchdog.WithNotifier(conversation.MultiNotifier{
			textNotifier,
			conversation.NewLogNotifier(log.Named("notice")),
		}),
	)
	wd.Start(ctx)
	defer wd.Stop()

	if missing := images.Missing(); len(missing) > 0 {
		log.Info("no image for %d dishes: %v", len(missing), missing)
	}

	fmt.Println(display.RenderBanner(0))
	fmt.Println()

	go func() {
		ui.WaitReady()
		app.run(ctx, ui.InputChan())
		ui.Quit()
	}()

	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	cancel()
	app.wait()
	if s, ok := voice.(interface{ Stop() }); ok {
		s.Stop()
	}
}

// buildGateway loads the selected inference gateway. Any failure here is
// fatal: the app is useless without a model.
func buildGateway(opts options, log *logger.Logger) (domain.InferenceGateway, error) {
	labels := inference.DefaultLabels
	if path := os.Getenv("MONAN_LABELS"); path != "" {
		l, err := inference.LoadLabels(path)
		if err != nil {
			return nil, fmt.Errorf("loading labels: %w", err)
		}
		labels = l
	}

	switch opts.gateway {
	case "onnx":
		layout, err := inference.ParseLayout(opts.layout)
		if err != nil {
			return nil, err
		}
		return inference.NewONNX(inference.Config{
			ModelPath: envOr("MONAN_MODEL", "models/dishes.onnx"),
			OnnxLib:   envOr("MONAN_ONNX_LIB", "bin/libonnxruntime.so"),
			Labels:    labels,
			Layout:    layout,
			Softmax:   opts.softmax,
			TopK:      opts.topK,
		}, opts.imageSize, log)

	case "vision":
		key, endpoint := os.Getenv("VISION_CHAT_KEY"), os.Getenv("VISION_CHAT_ENDPOINT")
		if key == "" || endpoint == "" {
			return nil, fmt.Errorf("vision gateway needs VISION_CHAT_KEY and VISION_CHAT_ENDPOINT: %w", domain.ErrModelUnavailable)
		}
		var copts []vision.ClientOption
		if m := os.Getenv("VISION_CHAT_MODEL"); m != "" {
			copts = append(copts, vision.WithModel(m))
		}
		client := vision.NewClient(endpoint, key, log, copts...)
		topK := opts.topK
		if topK <= 0 {
			topK = len(labels)
		}
		return vision.NewClassifier(client, labels, opts.imageSize, log, vision.WithTopK(topK)), nil

	default:
		return nil, fmt.Errorf("unknown gateway %q (want onnx or vision)", opts.gateway)
	}
}

// buildVoice returns the Azure announcer when credentials and an audio
// device are available, a silent voice otherwise.
func buildVoice(ctx context.Context, opts options, log *logger.Logger) speech.Voice {
	cfg := speech.ConfigFromEnv()
	if opts.noSpeech {
		return speech.NewNoOp(log)
	}
	if !cfg.Enabled() {
		log.Info("TTS disabled: set %s and %s env vars to enable", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
		return speech.NewNoOp(log)
	}

	player, err := speech.NewPlayer(log)
	if err != nil {
		log.Error("audio player init failed, speech disabled: %v", err)
		return speech.NewNoOp(log)
	}

	tts := speech.NewAzureClient(cfg.Key, cfg.Region, log, speech.WithVoice(cfg.Voice))
	a := speech.NewAnnouncer(tts, player, log,
		speech.WithCache(speech.NewAudioCache(tts.Voice(), opts.cacheDir, true, log)),
	)
	a.Start(ctx)
	a.Prefetch(ctx, speech.FixedLines()...)
	log.Info("TTS enabled (voice=%s, region=%s)", tts.Voice(), cfg.Region)
	return a
}

func listEntries(cat *catalog.Catalog, images domain.ImageResolver) []display.ListEntry {
	recs := cat.List()
	out := make([]display.ListEntry, len(recs))
	for i, r := range recs {
		_, has := images.Resolve(r.ImageKey)
		out[i] = display.ListEntry{Index: i, Name: r.Name, Key: r.ImageKey, HasImage: has}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

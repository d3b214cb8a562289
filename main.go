package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webview "github.com/webview/webview_go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/its-siddharth/house-price-predictor/internal/config"
	"github.com/its-siddharth/house-price-predictor/internal/server"
)

var version = "dev"

func main() {
	// Parse command-line flags
	port := flag.Int("port", 8080, "HTTP server port")
	modelsDir := flag.String("models-dir", "", "Directory containing model artifacts (.gob plus optional .json sidecars)")
	dbPath := flag.String("db", "", "Path to the prediction history database (empty disables history)")
	configPath := flag.String("config", "config.yaml", "Path to optional YAML config file")
	logFile := flag.String("log-file", "", "Log file path (empty logs to stderr)")
	headless := flag.Bool("headless", false, "Run in headless mode (no GUI window)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("House Price Predictor v%s\n", version)
		os.Exit(0)
	}

	// Config file fills anything the flags left at defaults
	fileCfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read config file: %v\n", err)
		os.Exit(1)
	}

	log := buildLogger(firstNonEmpty(*logFile, fileCfg.LogFile))
	defer log.Sync()

	// Resolve the models directory:
	// 1. Explicit flag takes priority
	// 2. Config file
	// 3. Otherwise, saved settings from a previous run
	// 4. Fall back to ./saved_models
	resolvedModelsDir := firstNonEmpty(*modelsDir, fileCfg.ModelsDir)
	if resolvedModelsDir == "" {
		settings, err := config.LoadSettings()
		if err != nil {
			log.Warnf("Could not load settings: %v", err)
		} else if settings.ModelsDir != "" {
			if _, err := os.Stat(settings.ModelsDir); err == nil {
				resolvedModelsDir = settings.ModelsDir
				log.Infof("Using models directory from settings: %s", resolvedModelsDir)
			} else {
				log.Warnf("Saved models directory no longer exists: %s", settings.ModelsDir)
			}
		}
	}
	if resolvedModelsDir == "" {
		resolvedModelsDir = "./saved_models"
	}

	portSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "port" {
			portSet = true
		}
	})
	resolvedPort := resolvePort(*port, portSet, fileCfg.Port)

	// Find an available port (try up to 10 ports starting from the requested one)
	availablePort, err := findAvailablePort(resolvedPort, 10)
	if err != nil {
		log.Fatalf("Failed to find available port: %v", err)
	}
	if availablePort != resolvedPort {
		log.Infof("Port %d in use, using port %d instead", resolvedPort, availablePort)
	}

	cfg := config.Config{
		Port:         availablePort,
		ModelsDir:    resolvedModelsDir,
		DatabasePath: firstNonEmpty(*dbPath, fileCfg.DatabasePath),
		Version:      version,
	}

	log.Infof("House Price Predictor v%s starting on port %d", version, cfg.Port)
	log.Infof("Models directory: %s", cfg.ModelsDir)

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(serverURL, 10*time.Second, log)

	if *headless {
		// Headless mode: wait for signal or error
		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server error: %v", err)
			}
		case sig := <-stop:
			log.Infof("Received %v signal, shutting down...", sig)
			if err := srv.Stop(); err != nil {
				log.Errorf("Error during shutdown: %v", err)
			}
		}
	} else {
		// GUI mode: open embedded WebView window
		log.Infof("Opening application window...")
		w := webview.New(false)
		defer w.Destroy()

		w.SetTitle("House Price Predictor")
		w.SetSize(960, 720, webview.HintNone)
		w.Navigate(serverURL)

		// When the webview window closes, shut down the server
		go func() {
			select {
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed {
					log.Errorf("Server error: %v", err)
				}
			case sig := <-stop:
				log.Infof("Received %v signal, shutting down...", sig)
				w.Terminate()
			}
		}()

		// Run blocks until the window is closed
		w.Run()

		log.Infof("Window closed, shutting down server...")
		if err := srv.Stop(); err != nil {
			log.Errorf("Error during shutdown: %v", err)
		}
	}
}

// buildLogger constructs the application logger, rotating the log file
// when one is configured.
func buildLogger(logFile string) *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if logFile != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), sink, zap.InfoLevel)
	return zap.New(core).Sugar()
}

// resolvePort prefers an explicitly passed -port flag over the config
// file; the config file only fills in when the flag was left at its
// default.
func resolvePort(flagPort int, flagSet bool, filePort int) int {
	if flagSet || filePort == 0 {
		return flagPort
	}
	return filePort
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// waitForServer polls until the server is accepting connections
func waitForServer(url string, timeout time.Duration, log *zap.SugaredLogger) {
	addr := url[len("http://"):]
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Warnf("Server may not be ready at %s", url)
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		addr := fmt.Sprintf(":%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}

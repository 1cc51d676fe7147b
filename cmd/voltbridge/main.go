// Command voltbridge bridges TCP and HTTP voltage-control commands to a vendor device-control
// tool, queuing HTTP commands it cannot deliver immediately and ramping smoothly between
// set-points on request.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/titone-mit/voltbridge/config"
	"github.com/titone-mit/voltbridge/devicetool"
	"github.com/titone-mit/voltbridge/dispatch"
	"github.com/titone-mit/voltbridge/httpfrontend"
	"github.com/titone-mit/voltbridge/lalog"
	"github.com/titone-mit/voltbridge/pidfile"
	"github.com/titone-mit/voltbridge/queue"
	"github.com/titone-mit/voltbridge/supervise"
	"github.com/titone-mit/voltbridge/tcpfrontend"
	"github.com/titone-mit/voltbridge/voltage"
)

var logger = lalog.Logger{ComponentName: "voltbridge", ComponentID: []lalog.LoggerIDField{{Key: "PID", Value: os.Getpid()}}}

func main() {
	pidFileFlag := flag.String("pidfile", "", "override the PID file path")
	deviceToolFlag := flag.String("devicetool", "", "override the device tool executable path")
	flag.Parse()

	// config.Load requires the device tool path, so let the flag satisfy it on its own.
	if *deviceToolFlag != "" {
		os.Setenv("VOLTBRIDGE_DEVICE_TOOL", *deviceToolFlag)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Abort("main", err, "failed to load configuration")
	}
	if *pidFileFlag != "" {
		cfg.PIDFile = *pidFileFlag
	}
	if *deviceToolFlag != "" {
		cfg.DeviceTool = *deviceToolFlag
	}

	pf := pidfile.New(cfg.PIDFile)
	if err := pf.Write(time.Now().Unix()); err != nil {
		logger.Warning("main", err, "failed to write pid file, continuing anyway")
	}

	vs := voltage.NewState()
	invoker := devicetool.NewInvoker(cfg.DeviceTool, vs)
	disp := dispatch.New(invoker, vs, dispatch.Config{
		SubprocessTimeout: cfg.SubprocessTimeout,
		RampFloor:         cfg.RampFloor,
		RampSmoothing:     cfg.RampSmoothing,
	}, logger)

	q, err := queue.Open(cfg.QueueDB)
	if err != nil {
		logger.Abort("main", err, "failed to open outbound queue database")
	}
	defer q.Close()

	disp.Registry().MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "voltbridge_queue_unsent",
			Help: "Commands recorded in the outbound queue that have not yet been sent.",
		}, func() float64 {
			n, err := q.CountUnsent()
			if err != nil {
				return -1
			}
			return float64(n)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "voltbridge_queue_sent",
			Help: "Commands recorded in the outbound queue that have been sent.",
		}, func() float64 {
			n, err := q.CountSent()
			if err != nil {
				return -1
			}
			return float64(n)
		}),
	)

	flusher := &queue.Flusher{
		Queue:    q,
		Submit:   disp,
		Interval: cfg.FlushInterval,
		Logger:   logger,
		Now:      func() int64 { return time.Now().Unix() },
	}

	rateLimit := lalog.NewRateLimit(60, cfg.TCPRateLimit, &logger)
	tcpServer := &tcpfrontend.Server{
		Address:      cfg.Host,
		Port:         cfg.Port,
		Submit:       disp,
		RateLimit:    rateLimit,
		Logger:       logger,
		ShutdownPoll: cfg.SupervisorCheck,
	}

	// A /send submit can legitimately block for a full device invocation, so the HTTP write
	// timeout must outlast the subprocess timeout.
	httpServer := httpfrontend.ListenAndServe(
		cfg.HTTPHost+":"+strconv.Itoa(cfg.HTTPPort),
		httpfrontend.NewServer(disp, q, vs, promhttp.HandlerFor(disp.Registry(), promhttp.HandlerOpts{}), logger),
		10*time.Second, cfg.SubprocessTimeout+10*time.Second,
	)

	stop := make(chan struct{})
	go supervise.AutoRestart(logger, "flusher", stop, func() error {
		flusher.Run(stop)
		return nil
	})
	go supervise.AutoRestart(logger, "tcpfrontend", stop, tcpServer.ListenAndServe)
	go supervise.AutoRestart(logger, "httpfrontend", stop, func() error {
		logger.Info("httpfrontend", nil, "listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("main", nil, "received signal %s, shutting down", sig)

	close(stop)
	tcpServer.Stop()
	httpServer.Close()
	disp.Shutdown()
	if err := pf.Remove(true); err != nil {
		logger.Warning("main", err, "failed to remove pid file")
	}
}

package main

import (
	"context"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nimbushttp/nimbus"
	"github.com/nimbushttp/nimbus/extras"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	rt := nimbus.NewRouter(nimbus.AlwaysPredicate)

	rt.Get("/health", extras.Health)
	rt.Post("/echo", extras.Echo)
	rt.Get("/legacy", extras.Redirect("/health"))

	broadcaster := extras.NewBroadcaster()
	broadcaster.OnSendError(func(id string, err error) {
		logger.Warn().Str("conn", id).Err(err).Msg("broadcast write failed, dropping connection")
	})

	rt.Get("/chat", func(req *nimbus.Request) (*nimbus.Response, error) {
		return nimbus.UpgradeResponse(req, func(req *nimbus.Request, conn nimbus.Connection) error {
			id := broadcaster.Register(conn)
			defer broadcaster.Unregister(id)

			_, err := io.Copy(io.Discard, conn)

			return err
		})
	})

	s, err := nimbus.NewBuilder().
		AddRouter(rt).
		WithLogger(logger).
		WithKeepAliveTimeout(60 * time.Second).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	connector, err := extras.ListenTCP("0.0.0.0:8080", s, extras.TCPConnectorConfig{
		MaxConcurrentConnections: 1024,
		OnAcceptError: func(err error) {
			logger.Error().Err(err).Msg("accept failed")
		},
		OnConnectionError: func(_ net.Conn, err error) {
			logger.Debug().Err(err).Msg("connection ended")
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to listen")
	}

	go func() {
		if err := connector.Serve(context.Background()); err != nil {
			logger.Error().Err(err).Msg("accept loop exited")
		}
	}()

	logger.Info().Str("addr", connector.Addr().String()).Msg("listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")

	if !connector.ShutdownAndJoin(10 * time.Second) {
		logger.Warn().Msg("shutdown timed out with connections still open")
	}
}

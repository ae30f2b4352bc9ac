package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"puzzle-party/internal/config"
	"puzzle-party/internal/content"
	"puzzle-party/internal/logging"
)

type botConfig struct {
	WSURL    string `env:"WS_URL" envDefault:"ws://localhost:8080/ws"`
	Name     string `env:"BOT_NAME" envDefault:"bot"`
	RoomCode string `env:"ROOM_CODE"`
	Variant  string `env:"BOT_VARIANT" envDefault:"countdown"`
}

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)

	var cfg botConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}
	contentCfg, err := config.LoadContent()
	if err != nil {
		log.Fatal().Err(err).Msg("load content config failed")
	}
	bank, err := content.LoadBank(contentCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("load word bank failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.WSURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.WSURL).Msg("dial failed")
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	b := newBot(bank)
	if err := write(conn, b.hello(cfg)); err != nil {
		log.Fatal().Err(err).Msg("send hello failed")
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Msg("connection closed")
			return
		}
		var f serverFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		for _, out := range b.respond(ctx, f) {
			if err := write(conn, out); err != nil {
				log.Warn().Err(err).Str("type", out.Type).Msg("send failed")
				return
			}
		}
	}
}

func write(conn *websocket.Conn, f clientFrame) error {
	msg, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}

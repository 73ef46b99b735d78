package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/adapters/ws"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/auth"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/config"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/core"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/media"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/session"
)

var (
	joinRoom string
	joinName string
	joinHost bool
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a room; type to chat, /mute toggles the mic, /quit leaves",
	RunE:  runJoin,
}

func init() {
	joinCmd.Flags().StringVarP(&joinRoom, "room", "r", "", "room code to join")
	joinCmd.Flags().StringVarP(&joinName, "name", "n", "", "display name")
	joinCmd.Flags().BoolVar(&joinHost, "host", false, "join as the publishing host")
	_ = joinCmd.MarkFlagRequired("room")
	_ = joinCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	role := domain.RoleViewer
	if joinHost {
		role = domain.RoleHost
	}

	var videoSink, audioSink core.Sink
	if cfg.MediaDir != "" {
		if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
			return err
		}
		videoSink = media.NewFileSink(core.KindVideo, cfg.MediaDir)
		audioSink = media.NewFileSink(core.KindAudio, cfg.MediaDir)
	} else {
		videoSink = media.NewNullSink(core.KindVideo)
		audioSink = media.NewNullSink(core.KindAudio)
	}

	issuer := auth.NewIssuer(cfg.APIKey, cfg.APISecret)
	transport := ws.NewTransport(ws.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	})

	ctrl := session.NewController(session.Options{
		Room:        domain.RoomID(joinRoom),
		Role:        role,
		DisplayName: joinName,
		ServerURL:   cfg.ServerURL,
		VideoSink:   videoSink,
		AudioSink:   audioSink,
		OnWarning: func(err error) {
			fmt.Fprintf(os.Stderr, "! %v\n", err)
		},
		OnChatMessage: func(m session.Message) {
			who := m.SenderName
			if m.Origin != session.OriginRemote {
				who = "you"
			}
			fmt.Printf("[%s] %s: %s\n", m.SentAt.Format("15:04"), who, m.Text)
		},
	}, issuer, transport)

	if err := ctrl.Join(ctx); err != nil {
		return err
	}
	defer ctrl.Close()

	fmt.Printf("joined room %s as %s (%s)\n", joinRoom, joinName, role)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
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
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "/quit":
				return nil
			case "/mute":
				muted, err := ctrl.ToggleMute(ctx)
				if err != nil {
					fmt.Fprintf(os.Stderr, "! %v\n", err)
					continue
				}
				fmt.Printf("microphone muted: %v\n", muted)
			case "/who":
				fmt.Printf("%d participant(s)\n", ctrl.ParticipantCount())
				for _, p := range ctrl.Roster() {
					fmt.Printf("  %s\n", p.Name)
				}
			default:
				if err := ctrl.SendMessage(ctx, line); err != nil {
					fmt.Fprintf(os.Stderr, "! message not delivered: %v\n", err)
				}
			}
		}
	}
}

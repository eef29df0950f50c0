package rest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/logger"
)

const responseInChannel = "in_channel"

// slashResponse is the immediate reply to a slash command.
type slashResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// command parses the slash command form and returns the caller.
// A form that cannot be parsed is answered with 400 and ok=false.
func (s *Server) command(w http.ResponseWriter, r *http.Request) (slack.SlashCommand, bool) {
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		logger.WarnKV(r.Context(), "Malformed slash command", "error", err)
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return cmd, false
	}

	return cmd, true
}

func chatActor(cmd slack.SlashCommand) *domain.Actor {
	return &domain.Actor{
		Source:   domain.SourceChat,
		Username: cmd.UserName,
	}
}

func reply(w http.ResponseWriter, cmd slack.SlashCommand, format string, args ...any) {
	writeJSON(w, http.StatusOK, slashResponse{
		ResponseType: responseInChannel,
		Text:         "@" + cmd.UserName + " " + fmt.Sprintf(format, args...),
	})
}

func (s *Server) handleArm(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.command(w, r)
	if !ok {
		return
	}

	s.engine.SetArmed(r.Context(), chatActor(cmd), true)
	reply(w, cmd, "OK, I will shout when something happens :eyes:")
}

func (s *Server) handleDisarm(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.command(w, r)
	if !ok {
		return
	}

	s.engine.SetArmed(r.Context(), chatActor(cmd), false)
	reply(w, cmd, "OK, standing down :zipper_mouth_face:")
}

func (s *Server) handleArmDelayed(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.command(w, r)
	if !ok {
		return
	}

	if !s.engine.ArmAfter(r.Context(), chatActor(cmd), s.opts.ArmDelay) {
		reply(w, cmd, "the alarm is already armed :facepalm:")

		return
	}

	reply(w, cmd, "OK, arming in %s :timer_clock:", humanDelay(s.opts.ArmDelay))
}

func (s *Server) handleCommandStatus(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.command(w, r)
	if !ok {
		return
	}

	status := "off :no_entry_sign:"
	if s.engine.Armed(r.Context()) {
		status = "armed :white_check_mark:"
	}

	reply(w, cmd, "Alarm is %s", status)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.command(w, r)
	if !ok {
		return
	}

	s.engine.RequestCaptures(r.Context())
	reply(w, cmd, "captures are on their way...")
}

// humanDelay renders whole minutes as "5 minutes" and anything else as a duration.
func humanDelay(delay time.Duration) string {
	switch {
	case delay == time.Minute:
		return "1 minute"
	case delay > 0 && delay%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(delay/time.Minute))
	default:
		return delay.String()
	}
}

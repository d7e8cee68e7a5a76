package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/pr0mega/BCLLDraft/internal/engine"
	"github.com/pr0mega/BCLLDraft/internal/export"
	"github.com/pr0mega/BCLLDraft/internal/hub"
	"github.com/pr0mega/BCLLDraft/internal/lobby"
	"github.com/pr0mega/BCLLDraft/internal/roster"
)

const (
	codeLength     = 6
	maxUploadBytes = 10 << 20
	lobbyTimeout   = 5 * time.Second
)

var errLobbyBusy = errors.New("lobby did not answer")

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateLobby(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			if findLobby(h, c) == nil {
				code = c
				break
			}
			logger.Info("collision on code, regenerating", zap.String("lobby", c))
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.EnsureLobby{Code: code, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to create lobby", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

// stateResponse carries counts for the admin header: players still waiting for
// a division and the undrafted head count per division.
type stateResponse struct {
	Code       string         `json:"code"`
	Version    int            `json:"version"`
	Clients    int            `json:"clients"`
	Unassigned int            `json:"unassigned"`
	Remaining  map[string]int `json:"remaining"`
	State      engine.State   `json:"state"`
}

func GetState(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		v, ok := lobbyView(w, r, h, code)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, stateResponse{
			Code:       code,
			Version:    v.Version,
			Clients:    v.NumClients,
			Unassigned: len(v.State.Players.Unassigned()),
			Remaining:  v.State.Players.CountUndrafted(),
			State:      v.State,
		})
	}
}

// UploadPlayers reads a roster CSV, either as the raw body or as the "file" part
// of a multipart form, and loads it into the lobby.
func UploadPlayers(h *hub.Hub, clock clockwork.Clock, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		lb := findLobby(h, code)
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		body, err := uploadBody(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer body.Close()

		players, err := roster.ReadCSV(body, clock)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		reply := make(chan error, 1)
		lb.Inbox() <- lobby.FromClient{
			ClientID: "http-upload",
			Cmd:      engine.Command{Type: engine.CmdLoadPlayers, Players: players},
			Reply:    reply,
		}
		select {
		case err = <-reply:
		case <-time.After(lobbyTimeout):
			err = errLobbyBusy
		}
		if err != nil {
			status := http.StatusConflict
			if errors.Is(err, errLobbyBusy) {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), status)
			return
		}

		logger.Info("roster loaded", zap.String("lobby", code), zap.Int("players", len(players)))
		writeJSON(w, http.StatusOK, struct {
			Players int `json:"players"`
		}{Players: len(players)})
	}
}

func uploadBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err == nil {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("multipart upload needs a file field")
		}
		return file, nil
	} else if !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	return r.Body, nil
}

func ExportRosters(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := lobbyView(w, r, h, chi.URLParam(r, "code"))
		if !ok {
			return
		}
		name := "rosters.csv"
		if v.State.Draft != nil {
			name = v.State.Draft.Division + "-rosters.csv"
		}
		csvHeaders(w, name)
		_ = export.WriteRosters(w, v.State.Draft)
	}
}

func ExportDraftLog(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := lobbyView(w, r, h, chi.URLParam(r, "code"))
		if !ok {
			return
		}
		csvHeaders(w, "draft-log.csv")
		_ = export.WriteDraftLog(w, v.State.Log)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func findLobby(h *hub.Hub, code string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
	return <-reply
}

func lobbyView(w http.ResponseWriter, r *http.Request, h *hub.Hub, code string) (lobby.View, bool) {
	lb := findLobby(h, code)
	if lb == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return lobby.View{}, false
	}
	reply := make(chan lobby.View, 1)
	select {
	case lb.Inbox() <- lobby.GetState{Reply: reply}:
	case <-r.Context().Done():
		return lobby.View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-time.After(lobbyTimeout):
		http.Error(w, errLobbyBusy.Error(), http.StatusServiceUnavailable)
		return lobby.View{}, false
	}
}

func csvHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

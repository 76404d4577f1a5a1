package pulsekit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/hubertat/pulsekit/engine"
)

const httpTimeoutsMs = 3000

// StartHTTP serves the status/control API when HttpAddr is configured:
//
//	GET /status                  engine register snapshot as JSON
//	PUT /control/kind/:kind      select sequence (fibonacci, prime, ...)
//	PUT /control/speed/:level    speed level 0-7
//	PUT /control/enable/:state   gate the blink output (true/false)
//	PUT /control/reset           one-shot sequence reset
func (pk *PulseKit) StartHTTP() (chan error, error) {
	if len(pk.HttpAddr) == 0 {
		return nil, errors.New("http address not set")
	}

	httpTimeout := httpTimeoutsMs * time.Millisecond

	server := &http.Server{
		Addr:              pk.HttpAddr,
		Handler:           pk.router(),
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	serverErr := make(chan error)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	return serverErr, nil
}

func (pk *PulseKit) router() *httprouter.Router {
	router := httprouter.New()
	router.GET("/status", pk.handleStatus)
	router.PUT("/control/kind/:kind", pk.handleKind)
	router.PUT("/control/speed/:level", pk.handleSpeed)
	router.PUT("/control/enable/:state", pk.handleEnable)
	router.PUT("/control/reset", pk.handleReset)

	return router
}

func (pk *PulseKit) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(pk.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (pk *PulseKit) handleKind(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	kind, err := engine.ParseSequenceKind(ps.ByName("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pk.controls.setKind(kind)
	w.WriteHeader(http.StatusNoContent)
}

func (pk *PulseKit) handleSpeed(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	level, err := strconv.Atoi(ps.ByName("level"))
	if err != nil || level < 0 || level > engine.SpeedLevelMax {
		http.Error(w, "speed level must be 0-7", http.StatusBadRequest)
		return
	}

	pk.controls.setSpeed(uint8(level))
	w.WriteHeader(http.StatusNoContent)
}

func (pk *PulseKit) handleEnable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	state, err := strconv.ParseBool(ps.ByName("state"))
	if err != nil {
		http.Error(w, "enable state must be a boolean", http.StatusBadRequest)
		return
	}

	pk.controls.setEnable(state)
	w.WriteHeader(http.StatusNoContent)
}

func (pk *PulseKit) handleReset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pk.controls.requestReset()
	w.WriteHeader(http.StatusNoContent)
}

package web

import (
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

const serviceName = "lsm303-ng"

type BuildInfo struct {
	GoVersion  string `json:"go_version"`
	ModulePath string `json:"module_path,omitempty"`
	Version    string `json:"version,omitempty"`
	Commit     string `json:"commit,omitempty"`
	Dirty      bool   `json:"dirty,omitempty"`
	BuildTime  string `json:"build_time,omitempty"`
}

type AboutResponse struct {
	Service string `json:"service"`
	NowUTC  string `json:"now_utc"`
	BuildInfo
}

// readBuildInfo is computed once; the binary does not change underneath us.
var readBuildInfo = sync.OnceValue(func() BuildInfo {
	out := BuildInfo{GoVersion: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return out
	}
	out.ModulePath = bi.Main.Path
	out.Version = bi.Main.Version
	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}
	out.Commit = settings["vcs.revision"]
	out.Dirty = settings["vcs.modified"] == "true"
	out.BuildTime = settings["vcs.time"]
	return out
})

func aboutHandler(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, AboutResponse{
		Service:   serviceName,
		NowUTC:    time.Now().UTC().Format(time.RFC3339Nano),
		BuildInfo: readBuildInfo(),
	})
}

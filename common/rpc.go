package common

import (
	"github.com/warpdl/warpfetch/pkg/cache"
	"github.com/warpdl/warpfetch/pkg/catalog"
	"github.com/warpdl/warpfetch/pkg/fetch"
	"github.com/warpdl/warpfetch/pkg/prefetch"
)

// JSON-RPC method names.
const (
	MethodVersion       = "system.getVersion"
	MethodAppear        = "viewport.appear"
	MethodDisappear     = "viewport.disappear"
	MethodViewport      = "viewport.status"
	MethodCatalogStatus = "catalog.status"
	MethodStats         = "prefetch.stats"
	MethodPause         = "prefetch.pause"
	MethodResume        = "prefetch.resume"
	MethodPrune         = "cache.prune"
)

// Push notification names sent to WebSocket clients.
const (
	NotifyBegin         = "prefetch.begin"
	NotifyCancel        = "prefetch.cancel"
	NotifyFetchComplete = "fetch.complete"
	NotifyFetchError    = "fetch.error"
)

// Raw viewport stream event names.
const (
	EventAppear    = "appear"
	EventDisappear = "disappear"
)

type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

type IndexParams struct {
	Index int `json:"index"`
}

type ViewportStatus struct {
	Visible []int          `json:"visible"`
	Window  prefetch.Range `json:"window"`
	Pending bool           `json:"pending"`
}

type CatalogStatus = catalog.Status

type StatsResult struct {
	Fetch fetch.Stats `json:"fetch"`
	Cache cache.Stats `json:"cache"`
}

type PruneParams struct {
	OlderThanSeconds int64 `json:"olderThanSeconds"`
}

type PruneResult struct {
	Removed int `json:"removed"`
}

type EmptyResult struct{}

type IndicesNotification struct {
	Indices []int `json:"indices"`
}

type FetchCompleteNotification struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Bytes int64  `json:"bytes"`
}

type FetchErrorNotification struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// ViewportEvent is one message on the raw /viewport stream.
type ViewportEvent struct {
	Event string `json:"event"`
	Index int    `json:"index"`
}

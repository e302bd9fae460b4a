package api

import (
	"net/http"

	"github.com/nerrad567/smartbin-core/internal/device"
	"github.com/nerrad567/smartbin-core/internal/lifecycle"
	"github.com/nerrad567/smartbin-core/internal/state"
)

// binView is a bin with its derived fill category. The category is computed
// on every read and never stored.
type binView struct {
	device.Bin
	Status state.Category `json:"status"`
}

func newBinView(b device.Bin) binView {
	return binView{Bin: b, Status: state.Classify(b.LevelPercent)}
}

func newBinViews(bins []device.Bin) []binView {
	views := make([]binView, 0, len(bins))
	for _, b := range bins {
		views = append(views, newBinView(b))
	}
	return views
}

// deviceView is a device with its bins expanded.
type deviceView struct {
	*device.Device
	BinDetails []binView `json:"bin_details"`
}

// cascadeBody is the response of a cascading delete.
type cascadeBody struct {
	DevicesDeleted int      `json:"devices_deleted"`
	BinsDeleted    int      `json:"bins_deleted"`
	Complete       bool     `json:"complete"`
	Errors         []string `json:"errors,omitempty"`
}

func cascadeResponse(result lifecycle.CascadeResult) cascadeBody {
	body := cascadeBody{
		DevicesDeleted: result.DevicesDeleted,
		BinsDeleted:    result.BinsDeleted,
		Complete:       result.Complete(),
	}
	for _, err := range result.Errors {
		body.Errors = append(body.Errors, err.Error())
	}
	return body
}

func writeDevices(w http.ResponseWriter, devices []device.Device) {
	if devices == nil {
		devices = []device.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

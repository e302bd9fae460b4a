// Package device persists smart-bin devices and their compartments (bins).
//
// A device belongs to one area and owns a fixed set of bins, one per
// configured type, with ids of the form "<device id>-<type>". Devices may
// carry a hardware correlation id (client_id_mqtt) that telemetry uses to
// address them.
//
// # Key Types
//
//   - Device: connectivity status, correlation id, latest color and
//     proximity observations, bin id list, metadata
//   - Bin: compartment type and fill level in [0, 100]
//
// # Persistence
//
// Repository and BinRepository are backed by SQLite. Every mutating method
// is one UPDATE statement so that concurrent writers from HTTP and MQTT
// resolve as last-write-wins per field. Metadata updates use json_patch and
// never drop unrelated keys.
//
//	devices := device.NewSQLiteRepository(db)
//	bins := device.NewSQLiteBinRepository(db)
//
//	dev, err := devices.GetByCorrelationID(ctx, "esp-01")
//	err = bins.SetLevel(ctx, device.BinID(dev.ID, device.BinTypePlastic), 42.5, nil)
package device

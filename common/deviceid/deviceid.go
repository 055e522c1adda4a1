// Package deviceid identifies this installation in telemetry. The ID is random and carries no
// information about the user or their BlueVia account.
package deviceid

import (
	"encoding/base64"
	"log/slog"

	"github.com/google/uuid"

	"github.com/getlantern/oauthdance/common/settings"
)

// Get returns the identifier stored in the settings, generating and persisting a random UUID the
// first time. If no random UUID can be created it falls back to an ID derived from the MAC address.
func Get() string {
	if existingID := settings.GetString(settings.DeviceIDKey); existingID != "" {
		return existingID
	}
	newID, err := uuid.NewRandom()
	if err != nil {
		slog.Error("Error generating new deviceID, defaulting to node ID", "error", err)
		return base64.StdEncoding.EncodeToString(uuid.NodeID())
	}
	idStr := newID.String()
	if err := settings.Set(settings.DeviceIDKey, idStr); err != nil {
		slog.Error("Error persisting new deviceID", "error", err)
	}
	return idStr
}

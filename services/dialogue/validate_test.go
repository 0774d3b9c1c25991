package dialogue

import (
	"testing"
	"time"

	"busmitra/models"
)

func TestValidateSlot(t *testing.T) {
	now := time.Date(2026, 9, 20, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		slot    models.SlotName
		value   string
		wantErr bool
	}{
		{"origin ok", models.SlotOrigin, "Chennai", false},
		{"origin blank", models.SlotOrigin, "  ", true},
		{"date ok", models.SlotDate, "21/09/2026", false},
		{"date today ok", models.SlotDate, "20/09/2026", false},
		{"date past", models.SlotDate, "19/09/2026", true},
		{"date wrong format", models.SlotDate, "2026-09-21", true},
		{"passengers ok", models.SlotPassengerCount, "4", false},
		{"passengers zero", models.SlotPassengerCount, "0", true},
		{"passengers too many", models.SlotPassengerCount, "7", true},
		{"passengers not a number", models.SlotPassengerCount, "four", true},
		{"time window ok", models.SlotTimeWindow, "06:00-12:00", false},
		{"time window empty ok", models.SlotTimeWindow, "", false},
		{"time window malformed", models.SlotTimeWindow, "morning", true},
		{"time window bad clock", models.SlotTimeWindow, "6am-12pm", true},
		{"payment card", models.SlotPaymentMethod, "card", false},
		{"payment cash", models.SlotPaymentMethod, "cash", false},
		{"payment upi unsupported", models.SlotPaymentMethod, "upi", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlot(tt.slot, tt.value, now)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlot(%s, %q) = %v, wantErr %v", tt.slot, tt.value, err, tt.wantErr)
			}
		})
	}
}

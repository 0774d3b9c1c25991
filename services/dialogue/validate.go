package dialogue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"busmitra/models"
)

// dateLayout matches the reservation backend's journey-date format.
const dateLayout = "02/01/2006"

// ValidateSlot applies domain rules to a candidate value. A failure here is a
// clarification with the user, never an escalation.
func ValidateSlot(name models.SlotName, value string, now time.Time) error {
	switch name {
	case models.SlotOrigin, models.SlotDestination:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("place name must not be empty")
		}
	case models.SlotDate:
		d, err := time.Parse(dateLayout, value)
		if err != nil {
			return fmt.Errorf("date must be in DD/MM/YYYY format: %w", err)
		}
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if d.Before(today) {
			return fmt.Errorf("travel date %s is in the past", value)
		}
	case models.SlotPassengerCount:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("passenger count must be a number: %w", err)
		}
		if n < 1 || n > 6 {
			return fmt.Errorf("passenger count must be between 1 and 6")
		}
	case models.SlotTimeWindow:
		if value == "" {
			return nil
		}
		parts := strings.Split(value, "-")
		if len(parts) != 2 {
			return fmt.Errorf("time window must be HH:MM-HH:MM")
		}
		for _, p := range parts {
			if _, err := time.Parse("15:04", strings.TrimSpace(p)); err != nil {
				return fmt.Errorf("time window must be HH:MM-HH:MM: %w", err)
			}
		}
	case models.SlotPaymentMethod:
		switch value {
		case "card", "cash":
		default:
			return fmt.Errorf("unsupported payment method: %s", value)
		}
	case models.SlotBudget:
		if value == "" {
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("budget must be an amount in rupees: %w", err)
		}
		if n < 1 {
			return fmt.Errorf("budget must be a positive amount in rupees")
		}
	}
	return nil
}

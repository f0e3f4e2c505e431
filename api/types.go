package api

const (
	ActionGetAdvanceDays        = "getAdvanceDays"
	ActionGetCalendarData       = "getCalendarData"
	ActionFetchReservationsData = "fetchReservationsData"
	ActionProcessReservation    = "processReservation"
)

// BookedSymbol marks an item as taken in CalendarData.
const BookedSymbol = "✕"

const (
	ConciergeRequired    = "必要"
	ConciergeNotRequired = "不要"
)

const (
	StatusConfirmed = "予約完了"
	StatusPending   = "調整中"
)

type AdvanceDaysResponse struct {
	AdvanceDays int `json:"advanceDays"`
}

// CalendarData maps YYYY-MM-DD to item ID to status symbol.
type CalendarData map[string]map[string]string

type ReservationRecord struct {
	Date      string `json:"date"`
	Character string `json:"character"`
	Office    string `json:"office"`
	Place     string `json:"place"`
	Concierge string `json:"concierge"`
	Status    string `json:"status"`
}

// StatusLabel translates the backend status into an English label.
func (r ReservationRecord) StatusLabel() string {
	switch r.Status {
	case StatusConfirmed:
		return "confirmed"
	case StatusPending:
		return "pending"
	case "":
		return "-"
	default:
		return r.Status
	}
}

type ReservationsResponse struct {
	Success      *bool               `json:"success,omitempty"`
	Message      string              `json:"message,omitempty"`
	Reservations []ReservationRecord `json:"reservations"`
}

type ReservationForm struct {
	Date      string `json:"date"`
	Character string `json:"character"`
	Office    string `json:"office"`
	Location  string `json:"location"`
	Concierge string `json:"concierge"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Remarks   string `json:"remarks"`
}

type ProcessReservationRequest struct {
	Action    string          `json:"action"`
	FormData  ReservationForm `json:"formData"`
	CSRFToken string          `json:"csrfToken"`
}

type ProcessReservationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

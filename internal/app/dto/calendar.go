package dto

type CalendarDay struct {
	Date     string   `json:"date"`
	Weekday  string   `json:"weekday"`
	Price    MoneyDTO `json:"price"`
	Source   string   `json:"source"`
	Quota    int      `json:"quota"`
	Explicit bool     `json:"quota_explicit"`
	StopSell bool     `json:"stop_sell"`
}

type CalendarView struct {
	RoomID           string        `json:"room_id"`
	From             string        `json:"from"`
	To               string        `json:"to"`
	DefaultUnitCount int           `json:"default_unit_count"`
	Days             []CalendarDay `json:"days"`
}

type RangeApplied struct {
	RoomID string  `json:"room_id"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Days   int     `json:"days"`
	Price  *string `json:"price,omitempty"`
	Quota  *int    `json:"quota,omitempty"`
}

type RateSheetExport struct {
	RoomID   string `json:"room_id"`
	Location string `json:"location"`
	Rows     int    `json:"rows"`
}

type Availability struct {
	RoomID    string `json:"room_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Units     int    `json:"units"`
	Available bool   `json:"available"`
	// FirstUnavailable is set when Available is false.
	FirstUnavailable string `json:"first_unavailable,omitempty"`
}

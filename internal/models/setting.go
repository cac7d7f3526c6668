package models

// Setting is a named list of values configured by the shop staff, e.g. the sizes or colours
// offered in the catalogue. Names are unique.
type Setting struct {
	ID     string   `json:"id"`
	Name   string   `json:"name" validate:"required,min=1,max=50"`
	Values []string `json:"values" validate:"required,min=1,dive,min=2"`
}

type SettingRequest struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type SettingListResponse struct {
	Settings []Setting `json:"settings"`
}

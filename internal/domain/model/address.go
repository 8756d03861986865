package model

import "strings"

// 配送先・請求先の住所
type Address struct {
	//宛名
	Name string `json:"name"`

	//番地など
	Line1 string `json:"line1"`

	//建物名など
	Line2 string `json:"line2,omitempty"`

	City       string `json:"city"`
	PostalCode string `json:"postal_code"`

	//ISO国コード（DE, FRなど）
	Country string `json:"country"`

	Phone string `json:"phone,omitempty"`
}

func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Name) == "" &&
		strings.TrimSpace(a.Line1) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.PostalCode) == "" &&
		strings.TrimSpace(a.Country) == ""
}

package model

import (
	"sort"
	"strings"
)

// 倉庫ごとの配送可能国
type ShippingRate struct {
	WarehouseID   string   `json:"warehouse_id"`
	WarehouseName string   `json:"warehouse_name"`
	Countries     []string `json:"countries"`
}

func (r ShippingRate) Supports(country string) bool {
	for _, c := range r.Countries {
		if strings.EqualFold(c, country) {
			return true
		}
	}
	return false
}

// 配送先の選択状態。空文字は未選択
type ShippingSelection struct {
	SelectedCountry   string         `json:"selectedCountry"`
	SelectedWarehouse string         `json:"selectedWarehouse"`
	AvailableRates    []ShippingRate `json:"availableRates"`
}

// AvailableCountries は全rateの国の和集合（ソート済み）
func (s ShippingSelection) AvailableCountries() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range s.AvailableRates {
		for _, c := range r.Countries {
			c = strings.ToUpper(strings.TrimSpace(c))
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// AvailableWarehouses は選択中の国に配送できるrate
func (s ShippingSelection) AvailableWarehouses() []ShippingRate {
	out := []ShippingRate{}
	if s.SelectedCountry == "" {
		return out
	}
	for _, r := range s.AvailableRates {
		if r.Supports(s.SelectedCountry) {
			out = append(out, r)
		}
	}
	return out
}

// WarehouseCompatible は倉庫が現在の国で使えるか。
// 国が未選択なら、どれかのrateに存在すればOK
func (s ShippingSelection) WarehouseCompatible(warehouseID string) bool {
	if s.SelectedCountry == "" {
		for _, r := range s.AvailableRates {
			if r.WarehouseID == warehouseID {
				return true
			}
		}
		return false
	}
	for _, r := range s.AvailableWarehouses() {
		if r.WarehouseID == warehouseID {
			return true
		}
	}
	return false
}

package model

// カートの明細。ProductIDで一意。
// 永続化するのは product_id と quantity だけ（Productは読み込み時に付け直す）
type CartItem struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Product   *ProductSnapshot `json:"product,omitempty"`
}

// 画面表示用のエラー情報
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// セッションのカート
type Cart struct {
	Items           []CartItem       `json:"items"`
	CalculatedOrder *CalculatedOrder `json:"calculatedOrder"`

	// items / 国 / 倉庫が変わって再計算待ちの状態。
	// 古いCalculatedOrderは残るが、確定値としては使わない
	Pending bool `json:"pending"`

	IsLoading bool       `json:"isLoading"`
	Error     *ErrorInfo `json:"error"`
}

// IndexOf はproductIDの位置を返す（無ければ-1）
func (c *Cart) IndexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount は数量の合計
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Clone はUIへ渡すためのコピーを作る
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	if c.Error != nil {
		e := *c.Error
		out.Error = &e
	}
	return out
}

package converter

import "github.com/baiguoname/qust-sub001/internal/pricestore"

type preNow struct {
	a Converter
	b Converter
}

// PreNow applies a and then b.
func PreNow(a, b Converter) Converter {
	return preNow{a: a, b: b}
}

func (c preNow) String() string {
	return "prenow(" + c.a.String() + "," + c.b.String() + ")"
}

func (c preNow) Convert(store *pricestore.PriceStore) (*Converted, error) {
	first, err := c.a.Convert(store)
	if err != nil {
		return nil, err
	}

	second, err := c.b.Convert(first.Store)
	if err != nil {
		return nil, err
	}

	ends := make([]int, len(second.RawEnd))
	for k, mid := range second.RawEnd {
		ends[k] = first.RawEnd[mid]
	}

	return &Converted{Store: second.Store, RawEnd: ends}, nil
}

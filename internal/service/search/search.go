package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Skotchmaster/mlm_storefront/internal/cart"
	"github.com/elastic/go-elasticsearch/v9"
)

var ErrNotFound = errors.New("product not found")

// Catalog reads product snapshots from the catalog index. The cart copies
// what it returns at add time and never asks again.
type Catalog struct {
	ES    *elasticsearch.Client
	Index string
}

type productDoc struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Image string `json:"image"`
	PV    int64  `json:"pv"`
}

func (d productDoc) product(fallbackID string) cart.Product {
	id := d.ID
	if id == "" {
		id = fallbackID
	}
	return cart.Product{ID: id, Name: d.Name, Price: d.Price, Image: d.Image, PV: d.PV}
}

func (c *Catalog) Search(ctx context.Context, query string, from, size int) (int64, []cart.Product, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode search: %w", err)
	}

	res, err := c.ES.Search(
		c.ES.Search.WithContext(ctx),
		c.ES.Search.WithIndex(c.Index),
		c.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string     `json:"_id"`
				Source productDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search: %w", err)
	}

	prods := make([]cart.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		prods[i] = hit.Source.product(hit.ID)
	}
	return r.Hits.Total.Value, prods, nil
}

func (c *Catalog) GetByID(ctx context.Context, id string) (*cart.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	res, err := c.ES.Get(c.Index, id, c.ES.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("get product: %s", res.Status())
	}

	var r struct {
		ID     string     `json:"_id"`
		Found  bool       `json:"found"`
		Source productDoc `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	if !r.Found {
		return nil, ErrNotFound
	}

	p := r.Source.product(r.ID)
	return &p, nil
}

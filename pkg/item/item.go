// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package item defines the wire representation of a single asset-metadata
// record flowing through a pipeline. Items are open-shaped JSON documents:
// the runtime only assumes an "id" attribute and passes unknown keys
// through untouched.
package item

import (
	"encoding/json"

	"github.com/stacflow/stacflow/pkg/fieldpath"
)

// Well-known item attributes. Only ID is required by the runtime.
const (
	KeyID         = "id"
	KeyCollection = "collection"
	KeyProperties = "properties"
	KeyAssets     = "assets"
)

// Item is a single asset-metadata record. An item is exclusively owned by
// whichever pipeline stage currently holds it; modifiers may mutate it
// freely before passing it on.
type Item map[string]any

// ID returns the item's id attribute, or "" when absent or not a string.
func (it Item) ID() string {
	id, _ := it[KeyID].(string)
	return id
}

// Collection returns the item's collection attribute, or "" when absent.
func (it Item) Collection() string {
	c, _ := it[KeyCollection].(string)
	return c
}

// Properties returns the item's properties map, or nil when absent.
func (it Item) Properties() map[string]any {
	p, _ := it[KeyProperties].(map[string]any)
	return p
}

// Assets returns the item's assets map, or nil when absent.
func (it Item) Assets() map[string]any {
	a, _ := it[KeyAssets].(map[string]any)
	return a
}

// Clone returns an independent deep copy of the item.
func (it Item) Clone() Item {
	return Item(fieldpath.CloneValue(map[string]any(it)).(map[string]any))
}

// Decode parses a JSON document into an Item.
func Decode(data []byte) (Item, error) {
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, err
	}
	return it, nil
}

// Encode serializes the item as indented JSON.
func (it Item) Encode() ([]byte, error) {
	return json.MarshalIndent(it, "", "  ")
}

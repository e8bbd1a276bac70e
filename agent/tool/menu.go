package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

const (
	menuUnavailableText   = "Unable to fetch menu. Please contact support."
	detailUnavailableText = "Unable to fetch item details."
	menuEmptyText         = "The menu is empty right now. Please check back later."
)

type getMenuArgs struct{}

func (getMenuArgs) validate() error { return nil }

type getItemDetailsArgs struct {
	ItemName string `json:"item_name"`
}

func (a getItemDetailsArgs) validate() error {
	if strings.TrimSpace(a.ItemName) == "" {
		return fmt.Errorf("item_name is required")
	}
	return nil
}

func (c *Catalog) getMenuHandler() Handler {
	return &typedHandler[getMenuArgs]{
		id: GetMenu,
		info: &schema.ToolInfo{
			Name:        string(GetMenu),
			Desc:        "Retrieve the hotel menu with items, prices, and descriptions.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		run: func(ctx context.Context, _ getMenuArgs) string {
			items, err := c.menu.ListItems(ctx)
			if err != nil {
				c.report(ctx, GetMenu, contractx.FailureStoreUnavailable, err.Error())
				return menuUnavailableText
			}
			return FormatMenu(items, c.currency)
		},
		onInvalid: func(ctx context.Context, err error) string {
			c.report(ctx, GetMenu, contractx.FailureInvalidInput, err.Error())
			return "Error: " + err.Error()
		},
	}
}

func (c *Catalog) getItemDetailsHandler() Handler {
	return &typedHandler[getItemDetailsArgs]{
		id: GetItemDetails,
		info: &schema.ToolInfo{
			Name: string(GetItemDetails),
			Desc: "Get detailed information about a specific menu item.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"item_name": {Type: schema.String, Desc: "Name or part of the name of the menu item", Required: true},
			}),
		},
		run: func(ctx context.Context, args getItemDetailsArgs) string {
			items, err := c.menu.ListItems(ctx)
			if err != nil {
				c.report(ctx, GetItemDetails, contractx.FailureStoreUnavailable, err.Error())
				return detailUnavailableText
			}

			query := strings.TrimSpace(args.ItemName)
			item, ok := FindItem(items, query)
			if !ok {
				return fmt.Sprintf("Item '%s' not found in menu.", query)
			}
			return FormatItemDetails(item, c.currency)
		},
		onInvalid: func(ctx context.Context, err error) string {
			c.report(ctx, GetItemDetails, contractx.FailureInvalidInput, err.Error())
			return "Error: " + err.Error()
		},
	}
}

// FindItem returns the first item whose name contains query, ignoring case.
func FindItem(items []contractx.MenuItem, query string) (contractx.MenuItem, bool) {
	needle := strings.ToLower(query)
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			return item, true
		}
	}
	return contractx.MenuItem{}, false
}

func FormatMenu(items []contractx.MenuItem, currency string) string {
	if len(items) == 0 {
		return menuEmptyText
	}

	var sb strings.Builder
	sb.WriteString("🍽️ **HOTEL MENU** 🍽️\n\n")
	for _, item := range items {
		fmt.Fprintf(&sb, "📌 *%s*\n", item.Name)
		fmt.Fprintf(&sb, "   %s%s", currency, FormatAmount(item.Price))
		if item.Category != "" {
			fmt.Fprintf(&sb, " | %s", item.Category)
		}
		sb.WriteString("\n")
		if item.Description != "" {
			fmt.Fprintf(&sb, "   %s\n", item.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func FormatItemDetails(item contractx.MenuItem, currency string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", item.Name)
	fmt.Fprintf(&sb, "Price: %s%s\n", currency, FormatAmount(item.Price))
	if item.Category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", item.Category)
	}
	if item.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", item.Description)
	}
	return sb.String()
}

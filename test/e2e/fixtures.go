// Package e2e provides end-to-end tests; this file builds catalog fixtures on
// disk in the formats the ingestor accepts.
package e2e

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/xuri/excelize/v2"
)

// FixtureItem is one catalog entry in a generated fixture.
type FixtureItem struct {
	ID       string
	Caption  string
	Category string
	Color    color.RGBA
}

// DefaultFixtureItems is a small catalog spanning three categories with
// visually distinct images.
var DefaultFixtureItems = []FixtureItem{
	{ID: "sneaker-red.png", Caption: "bright red low-top sneaker", Category: "sneakers", Color: color.RGBA{220, 30, 30, 255}},
	{ID: "sneaker-white.png", Caption: "white leather sneaker", Category: "sneakers", Color: color.RGBA{240, 240, 240, 255}},
	{ID: "boot-brown.png", Caption: "brown suede ankle boot", Category: "boots", Color: color.RGBA{140, 90, 40, 255}},
	{ID: "sandal-blue.png", Caption: "blue strappy sandal", Category: "sandals", Color: color.RGBA{30, 60, 220, 255}},
}

// WriteImages renders a flat-color PNG for every item under imageDir.
func WriteImages(imageDir string, items []FixtureItem) error {
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return err
	}
	for _, item := range items {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.Set(x, y, item.Color)
			}
		}
		if err := imaging.Save(img, filepath.Join(imageDir, item.ID)); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes the fixture metadata as a CSV catalog file.
func WriteCSV(path string, items []FixtureItem) error {
	content := "file_name,local_path,caption,category\n"
	for _, item := range items {
		content += fmt.Sprintf("%s,%s,%s,%s\n", item.ID, item.ID, item.Caption, item.Category)
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// WriteXLSX writes the fixture metadata as an XLSX workbook.
func WriteXLSX(path string, items []FixtureItem) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{{"file_name", "local_path", "caption", "category"}}
	for _, item := range items {
		rows = append(rows, []interface{}{item.ID, item.ID, item.Caption, item.Category})
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return err
	}
	return f.Close()
}

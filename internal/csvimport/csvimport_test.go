package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseLineQuoting(t *testing.T) {
	require.Equal(t, []string{"a", `b,"c"`, "d"}, ParseLine(`a,"b,""c""",d`))
	require.Equal(t, []string{"x", "", "z"}, ParseLine(" x , , z "))
	require.Equal(t, []string{""}, ParseLine(""))
	require.Equal(t, []string{"a", ""}, ParseLine("a,"))
}

func TestParseLineUnterminatedQuoteConsumesRest(t *testing.T) {
	require.Equal(t, []string{"a", "b, c"}, ParseLine(`a,"b, c`))
}

func TestParseLineRoundTrip(t *testing.T) {
	values := []string{`plain`, `with,comma`, `say "hi"`, `both, "quoted"`, `""`}
	for _, v := range values {
		escaped := `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
		got := ParseLine("left," + escaped + ",right")
		require.Equal(t, []string{"left", v, "right"}, got, "value %q", v)
	}
}

func TestRecordsSkipsBlankLines(t *testing.T) {
	text := "name,qty\r\n\r\n  \nShampoo,2\r\n"
	require.Equal(t, [][]string{{"name", "qty"}, {"Shampoo", "2"}}, Records(text))
}

func TestDecodeStripsBOM(t *testing.T) {
	text, err := Decode(strings.NewReader("\ufeffname,qty\nShampoo,1\n"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(text, "name"))
}

func TestNormalizeHeaderAliases(t *testing.T) {
	for _, raw := range []string{"Item Name", "item_name", "  NAME ", "item   name"} {
		require.Equal(t, ColItemName, NormalizeHeader(raw), raw)
	}
	require.Equal(t, ColQuantity, NormalizeHeader("Qty"))
	require.Equal(t, ColUnitCost, NormalizeHeader("Price"))
	require.Equal(t, ColUnitCost, NormalizeHeader("Unit Price"))
	require.Equal(t, ColPurchaseUnitPrice, NormalizeHeader("Purchase Unit Price"))
	require.Equal(t, ColPurchaseUnitPrice, NormalizeHeader("Pack Price"))
	require.Equal(t, ColParentName, NormalizeHeader("Parent Item"))
	require.Equal(t, ColPurchaseUnit, NormalizeHeader("Unit"))
	require.Equal(t, "shelf", NormalizeHeader(" Shelf "))
}

func TestHeaderValueMissingColumn(t *testing.T) {
	h := NewHeader([]string{"Name", "Qty"})
	require.Equal(t, -1, h.Index(ColBrand))
	require.Equal(t, "", h.Value([]string{"Shampoo", "3"}, ColBrand))
	require.Equal(t, "", h.Value([]string{"Shampoo"}, ColQuantity))
	require.Equal(t, "3", h.Value([]string{"Shampoo", " 3 "}, ColQuantity))
}

func TestSplitFatalErrors(t *testing.T) {
	_, _, err := Split([][]string{{"name"}})
	require.ErrorIs(t, err, ErrTooFewLines)

	_, _, err = Split([][]string{{"brand", "qty"}, {"x", "1"}})
	require.ErrorIs(t, err, ErrMissingNameColumn)

	header, rows, err := Split([][]string{{"Item Name"}, {"Shampoo"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, []string{ColItemName}, header.Keys())
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Name", "Qty"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{" Shampoo ", 4}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"Conditioner", 2}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	records, err := ReadXLSX(buf)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Name", "Qty"}, {"Shampoo", "4"}, {"Conditioner", "2"}}, records)
}

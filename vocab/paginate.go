package vocab

// Paginate splits items into consecutive sheets of SheetSize items.
// The last sheet holds the remainder; no items yields no sheets.
func Paginate(items []Item) []Sheet {
	if len(items) == 0 {
		return nil
	}

	sheets := make([]Sheet, 0, SheetCount(len(items)))
	for offset := 0; offset < len(items); offset += SheetSize {
		end := min(offset+SheetSize, len(items))
		page := make([]Item, end-offset)
		copy(page, items[offset:end])
		sheets = append(sheets, Sheet{
			Index:  len(sheets),
			Offset: offset,
			Items:  page,
		})
	}
	return sheets
}

// SheetCount returns the number of sheets n items occupy.
func SheetCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + SheetSize - 1) / SheetSize
}

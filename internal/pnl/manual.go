package pnl

import "log/slog"

// ApplyManualEntries overwrites line item amounts in place and recomputes
// every derived figure. An entry whose id is not in the taxonomy, or whose
// target item is missing from the built structure, is logged and skipped;
// this is a deliberate non-fatal condition. Applying the same entry set
// twice yields the same result as applying it once.
func ApplyManualEntries(st *Structure, entries []ManualEntry, logger *slog.Logger) {
	if st == nil || len(entries) == 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, entry := range entries {
		target, ok := ManualTarget(entry.ItemID)
		if !ok {
			logger.Warn("manual entry references unknown item id",
				slog.String("itemId", entry.ItemID))
			continue
		}
		section := st.section(target)
		if section == nil {
			logger.Warn("manual entry target section missing",
				slog.String("itemId", entry.ItemID),
				slog.String("section", string(target)))
			continue
		}
		item := findItem(section.Items, entry.ItemID)
		if item == nil {
			logger.Warn("manual entry target item missing",
				slog.String("itemId", entry.ItemID),
				slog.String("section", string(target)))
			continue
		}
		item.Amount = entry.Amount
	}
	Recompute(st)
}

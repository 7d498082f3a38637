package reconcile

import (
	"fmt"

	"courtly/internal/catalog"
	"courtly/internal/shared/apperror"
)

// apply replays an edit request onto the session. A draft voucher left open
// by the actions is committed at the end so its items are part of the edit.
func apply(s *Session, court *catalog.Court, req EditRequest) error {
	if court != nil {
		if err := s.SetCourt(court); err != nil {
			return err
		}
	}
	if len(req.Slots) > 0 {
		if err := s.SetSlots(req.Slots); err != nil {
			return err
		}
	}

	for i, action := range req.Actions {
		if err := applyAction(s, action); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, action.Op, err)
		}
	}
	s.Vouchers().CommitPendingVoucher()
	return nil
}

func applyAction(s *Session, a ServiceAction) error {
	m := s.Vouchers()
	switch a.Op {
	case OpAddItem:
		return m.AddItemToPendingVoucher(a.BranchServiceID)
	case OpCommitVoucher:
		m.CommitPendingVoucher()
		return nil
	case OpRemovePendingItem:
		return m.RemovePendingItem(a.Index)
	case OpSetPendingQuantity:
		return m.SetPendingQuantity(a.Index, a.Quantity)
	case OpSetPendingWindow:
		if a.StartTime == nil || a.EndTime == nil {
			return apperror.Newf(apperror.ErrInvalidTimeRange, "start_time and end_time are required")
		}
		return m.SetPendingWindow(a.Index, *a.StartTime, *a.EndTime)
	case OpSetPendingTrainers:
		return m.SetPendingTrainers(a.Index, a.TrainerIDs)
	case OpRemoveItem:
		return m.RemoveItem(a.Index)
	case OpRemoveVoucher:
		if a.VoucherID == nil {
			return apperror.Newf(apperror.ErrReferenceNotFound, "voucher_id is required")
		}
		return m.RemoveVoucher(*a.VoucherID)
	case OpSetQuantity:
		return m.SetQuantity(a.Index, a.Quantity)
	case OpSetItemWindow:
		if a.StartTime == nil || a.EndTime == nil {
			return apperror.Newf(apperror.ErrInvalidTimeRange, "start_time and end_time are required")
		}
		return m.SetItemWindow(a.Index, *a.StartTime, *a.EndTime)
	default:
		return apperror.Newf(apperror.ErrInvalidState, "unknown service action %q", a.Op)
	}
}

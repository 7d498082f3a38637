package invoices

type InvoiceResponse struct {
	Invoice
	RemainingRefundable int64 `json:"remaining_refundable"`
}

func ToResponse(inv *Invoice) InvoiceResponse {
	return InvoiceResponse{
		Invoice:             *inv,
		RemainingRefundable: inv.RemainingRefundable(),
	}
}

func ToResponses(list []Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(list))
	for i := range list {
		out = append(out, ToResponse(&list[i]))
	}
	return out
}

type RefundHistoryResponse struct {
	InvoiceID int64         `json:"invoice_id"`
	Refunds   []RefundEntry `json:"refunds"`
	Total     int64         `json:"total"`
}

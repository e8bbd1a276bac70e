package contract

import "context"

type MenuStore interface {
	ListItems(ctx context.Context) ([]MenuItem, error)
}

type OrderStore interface {
	AppendOrder(ctx context.Context, order Order) error
}

type FailureReporter interface {
	ReportToolFailure(ctx context.Context, failure ToolFailure)
}

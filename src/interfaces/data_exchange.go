package interfaces

import "market-pulse/src/models"

// -----------------------------------------------------------------------------
// IPresenter receives committed snapshots (presentation layer boundary).
// -----------------------------------------------------------------------------

type IPresenter interface {
	// -----------------------------------------------------------------------------
	// PresentMarket publishes the symbol list to every consumer
	PresentMarket(snapshot models.MMarketSnapshot)

	// -----------------------------------------------------------------------------
	// PresentDetail publishes a detail view to the consumer that owns it
	PresentDetail(viewID string, snapshot models.MDetailSnapshot)
}

// -----------------------------------------------------------------------------
// IDataExchanger is the server side: presenter plus lifecycle.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	IPresenter

	// -----------------------------------------------------------------------------
	// LatestMarket returns the last symbol list handed to PresentMarket
	LatestMarket() models.MMarketSnapshot

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}

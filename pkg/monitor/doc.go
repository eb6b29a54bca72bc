// Package monitor orchestrates the compliance pipeline: clause compilation
// into stored rule bundles, fact event validation, ledger persistence and
// asynchronous archive mirroring.
package monitor

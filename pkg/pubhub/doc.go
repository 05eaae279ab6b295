// Package pubhub implements a content-publishing backend: three
// publication kinds (posts, articles, news) composed of heterogeneous
// content items (text, image, file, video) attached through a generic
// association, with view and rating counters held in a separate
// key/counter store.
//
// The package is storage-agnostic: persistence goes through the Repository
// interface (see repo/memory and repo/postgres) and counters through
// CounterStore (see counter/memory and counter/redis). HTTP handlers live
// in the api subpackage, token mechanics in token, and bootstrap wiring in
// config.
package pubhub

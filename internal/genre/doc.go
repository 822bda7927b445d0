// Package genre infers an artist's genre.
//
// LiveEngine asks Bandcamp, Spotify and Wikipedia in that order, merges their
// tags with the weight table from internal/rules and caches the result per
// artist in a file, Redis or memory. KeywordClassifier scores keyword and
// pattern tables offline. Both implement Classifier.
package genre

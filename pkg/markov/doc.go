/*
Package markov builds order-n Markov chain models over word tokens and
generates new token sequences by sampling from the learned transition
probabilities.

A model is assembled in three layers: TextTokens normalizes raw text into a
token sequence and a vocabulary, StateSpace enumerates the n-gram states and
builds the sparse transition count and probability matrices, and Chain
validates caller prefixes and samples sequences from the probability rows.
All structures are built eagerly at construction and are read-only
afterwards, so a single StateSpace can back any number of Chains.
*/
package markov

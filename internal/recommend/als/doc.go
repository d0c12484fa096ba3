// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

/*
Package als implements implicit-feedback matrix factorization trained with
alternating least squares (Hu, Koren, Volinsky 2008).

# Pipeline

	records -> IndexMapper (users, items) -> BuildMatrix -> Trainer.Train -> Model
	Model -> SimilarityIndex.SimilarItems
	Model -> Recommender.Recommend

# Model

Given an interaction weight w(u,i) >= 0 the trainer derives a preference
p(u,i) = 1 when w > 0 and a confidence c(u,i) from the configured transform
(1 + alpha*w by default). It minimizes

	sum_{u,i} c(u,i) * (p(u,i) - x_u . y_i)^2 + lambda * (sum ||x_u||^2 + sum ||y_i||^2)

by alternately solving for every item row with the user factors fixed and for
every user row with the item factors fixed. Each row solve is a k x k symmetric
positive-definite system; lambda > 0 keeps it non-singular even for rows whose
confidence carries no information.

# Concurrency

Row solves inside one half-step are independent and run on a bounded worker
pool. The item pass completes before the user pass starts. Cancellation is
observed only between rounds, so a returned error never leaves a model whose
user and item factors belong to different rounds.

A trained Model is immutable. Callers that retrain replace the whole Model
rather than mutating rows in place.
*/
package als

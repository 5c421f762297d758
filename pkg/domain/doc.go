/*
Package domain contains the core domain models of the formflow engine.

It defines the questionnaire vocabulary (questions, validation rules, skip
conditions, localized text) and the per-user Session snapshot. This package is
kept pure and free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - Question: One prompt in a schema, with its type, rules and skip condition.
  - Condition: A boolean expression tree deciding whether a question is skipped.
  - Value: A normalized answer, comparable by the condition evaluator.
  - Session: The runtime snapshot of a user's progress through a form.
  - Outcome: What happened to a submitted answer (accepted value or rejection).
*/
package domain

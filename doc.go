/*
Package formflow is a declarative questionnaire engine for multi-step,
conditionally branching registration forms.

A deployment describes its form as data: ordered questions, validation rules,
skip conditions and localized text. The engine interprets that schema for each
user session, deciding which question to ask next, validating answers and
tracking progress until the form is completed or cancelled.

# Concept

The engine itself is stateless. Every operation receives a Session value and
returns a new one; persisting it between turns is the host's job (see
pkg/ports and pkg/adapters). This keeps the engine embeddable in any
interface: the bundled CLI, the HTTP server, or a chat bot.

# Key Features

  - Three-valued skip logic: a condition about an unanswered question neither
    skips nor hides anything, so forward references are safe.
  - Load-time validation: a schema with dangling references, duplicate ids or
    missing translations never starts serving.
  - Atomic hot reload: sessions in flight always see one complete schema.
  - Rejections as data: a failed rule returns a localized message, never an error.

# Usage

	eng, err := formflow.New(def)
	if err != nil {
		log.Fatal(err) // *schema.SchemaError lists every problem
	}

	ctx := context.Background()
	s, _ := eng.Start(ctx, "user-42", domain.VariantNewUser, domain.Facts{EventType: "play"})

	for {
		q, ok := eng.NextQuestion(s)
		if !ok {
			break
		}
		step, err := eng.Submit(ctx, s, q.ID, domain.Text(readAnswer(q)))
		if err != nil {
			log.Fatal(err)
		}
		if !step.Outcome.Accepted() {
			fmt.Println(step.Outcome.Rejection.Text(s.Language, "en"))
		}
		s = step.Session
	}
*/
package formflow

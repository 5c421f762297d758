// Package schema turns raw question definitions into an immutable, validated Schema.
//
// All structural problems are detected at load time and reported together in a
// single *SchemaError: duplicate ids or orders, dangling condition references,
// missing translations, incoherent rule parameters. A Schema that loaded
// successfully never changes; concurrent sessions share it freely.
//
// Basic usage:
//
//	s, err := schema.Load(schema.Definition{
//	    Form: schema.FormInfo{Languages: []string{"he", "en"}, DefaultLanguage: "he"},
//	    Questions: questions,
//	})
//	if err != nil {
//	    for _, issue := range schema.Issues(err) {
//	        log.Println(issue)
//	    }
//	}
//
// Reloading is done by loading a new Schema and swapping it into a Holder.
package schema

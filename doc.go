/*
Package validate checks a JSON document against a JSON Schema whose
references may point to documents hosted on the network.

A run has three stages. The schema and data files are loaded from disk.
The schema is compiled: every remote document reachable through $ref,
$dynamicRef or $schema is fetched, one reference depth at a time with the
documents of a depth fetched in parallel, and the resolved graph is handed
to an evaluation engine. Finally the compiled validator is applied to the
data, collecting every violation rather than stopping at the first.

	p, err := validate.New(validate.DefaultOptions())
	if err != nil {
		return err
	}
	outcome := p.Run(ctx, "schema.json", "data.json")
	switch outcome.Status {
	case validate.StatusValid:
		// conforms
	case validate.StatusInvalid:
		for _, e := range outcome.Errors {
			fmt.Println(e.InstancePath, e.Keyword, e.Message)
		}
	default:
		return outcome.Err
	}

Remote documents are fetched at most once per compilation. Concurrent
requests for a document share a single fetch, and documents that
reference each other in a cycle are fetched once each. Every fetch is
bounded by Options.FetchTimeout; a failed fetch fails the compilation with
a *SchemaError.

Two engines are available: github.com/santhosh-tekuri/jsonschema/v6
(the default, drafts 4 to 2020-12) and github.com/xeipuuv/gojsonschema
(drafts 4 to 7). Both recognize the formats of package formats in addition
to their own, and both ignore unknown keywords.
*/
package validate

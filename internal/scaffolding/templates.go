package scaffolding

import "sort"

// Template is a starter client component.
type Template struct {
	Name        string
	Description string
	Content     string
}

// TemplateContext is the data a component template is executed with.
type TemplateContext struct {
	// Name is the component identifier, also the file base name.
	Name string
	// Signature opens the exported function declaration.
	Signature string
	// Typed reports a TypeScript module.
	Typed bool
}

var builtinTemplates = map[string]Template{
	"blank": {
		Name:        "blank",
		Description: "Empty component rendering its name",
		Content: `{{.Signature}}({{if .Typed}}props: Record<string, unknown>{{else}}props{{end}}) {
  return <div>{{.Name}}</div>
}
`,
	},
	"counter": {
		Name:        "counter",
		Description: "Button counting clicks from a start prop",
		Content: `import { useState } from "react"

{{.Signature}}({ start = 0 }{{if .Typed}}: { start?: number }{{end}}) {
  const [count, setCount] = useState(start)

  return (
    <button type="button" onClick={() => setCount(count + 1)}>
      {{.Name}}: {count}
    </button>
  )
}
`,
	},
	"toggle": {
		Name:        "toggle",
		Description: "Disclosure button showing and hiding its content",
		Content: `import { useState } from "react"

{{.Signature}}({ label = "{{.Name}}", open = false }{{if .Typed}}: { label?: string; open?: boolean }{{end}}) {
  const [isOpen, setOpen] = useState(open)

  return (
    <div>
      <button type="button" aria-expanded={isOpen} onClick={() => setOpen(!isOpen)}>
        {label}
      </button>
      {isOpen ? <div>{{.Name}} content</div> : null}
    </div>
  )
}
`,
	},
}

// DefaultTemplate is used when no template is named.
const DefaultTemplate = "blank"

// Templates returns the built-in component templates sorted by name.
func Templates() []Template {
	templates := make([]Template, 0, len(builtinTemplates))
	for _, t := range builtinTemplates {
		templates = append(templates, t)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return templates
}

// GetTemplate looks up a built-in template by name.
func GetTemplate(name string) (Template, bool) {
	t, ok := builtinTemplates[name]
	return t, ok
}

const indexPage = `# {{.Name}}

This page is rendered from src/pages/index.md.

Go pages are registered with site.New().MustRegister and placed next to a
.templ or .go file of the same name under src/pages. Client components live in
src/components and are hydrated only on the pages that use them.
`

const globalStyles = `@import "tailwindcss";
`

const gitignore = `dist/
.archipelago/
node_modules/
.env
`

const packageJSON = `{
  "name": "{{.Package}}",
  "private": true,
  "type": "module",
  "dependencies": {
    "react": "^19.0.0",
    "react-dom": "^19.0.0"
  },
  "devDependencies": {
    "@tailwindcss/cli": "^4.0.0",
    "esbuild": "^0.25.0",
    "tailwindcss": "^4.0.0"
  }
}
`

package engine

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"
	"text/template/parse"
	"unicode"
)

const templateName = "prompt"

// Engine — адаптер над text/template.
//
// Переменная шаблона записывается как {{ name }} или {{ .name }}.
// Голый идентификатор при рендеринге превращается в функцию без аргументов,
// возвращающую значение переменной, поэтому доступны и пайплайны:
//
//	{{ code | trim }}
//	{{ if strict }}...{{ end }}
//	{{ join ", " items }}
type Engine struct{}

// New создаёт Engine.
func New() *Engine {
	return &Engine{}
}

// ExtractVariables возвращает отсортированный список переменных,
// на которые ссылается шаблон.
//
// Идентификаторы, совпадающие с именами функций шаблона, переменными
// не считаются; функция с неподходящим числом аргументов (например,
// голый {{ index }}) даёт ErrTemplateSyntax. Поля внутри range/with
// относятся к элементу, а не к корню; $.name всегда ссылается на корень.
func (e *Engine) ExtractVariables(body string) ([]string, error) {
	trees, err := parseTrees(body)
	if err != nil {
		return nil, err
	}

	c := &collector{found: make(map[string]struct{})}
	for _, tree := range trees {
		c.walk(tree.Root, true)
	}
	if c.err != nil {
		return nil, c.err
	}

	names := make([]string, 0, len(c.found))
	for name := range c.found {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Render рендерит шаблон в строгом режиме.
//
// Любая переменная, на которую ссылается шаблон и которой нет в vars,
// даёт ErrMissingVariable. Отсутствующий ключ внутри вложенной map даёт ErrRender.
func (e *Engine) Render(body string, vars map[string]any) (string, error) {
	names, err := e.ExtractVariables(body)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if _, ok := vars[name]; !ok {
			return "", newVariableError(name, ErrMissingVariable, "undefined at render time")
		}
	}

	varFuncs := make(template.FuncMap, len(vars))
	for name, value := range vars {
		if !isIdentifier(name) || isFuncName(name) {
			continue
		}
		v := value
		varFuncs[name] = func() any { return v }
	}

	t, err := template.New(templateName).
		Funcs(templateFuncs).
		Funcs(varFuncs).
		Option("missingkey=error").
		Parse(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateSyntax, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}

	return buf.String(), nil
}

// parseTrees разбирает шаблон без проверки функций,
// чтобы голые идентификаторы попали в дерево как IdentifierNode.
func parseTrees(body string) (map[string]*parse.Tree, error) {
	treeSet := make(map[string]*parse.Tree)

	tree := parse.New(templateName)
	tree.Mode = parse.SkipFuncCheck
	if _, err := tree.Parse(body, "", "", treeSet); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateSyntax, err)
	}
	treeSet[templateName] = tree

	return treeSet, nil
}

// collector обходит дерево и собирает имена переменных.
// err — первая найденная ошибка использования функций.
type collector struct {
	found map[string]struct{}
	err   error
}

// walk обходит узел. rootDot — указывает ли точка на корневой набор переменных.
func (c *collector) walk(node parse.Node, rootDot bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			c.walk(child, rootDot)
		}

	case *parse.ActionNode:
		c.walk(n.Pipe, rootDot)

	case *parse.PipeNode:
		if n == nil {
			return
		}
		for i, cmd := range n.Cmds {
			c.command(cmd, rootDot, i > 0)
		}

	case *parse.IfNode:
		c.branch(&n.BranchNode, rootDot, rootDot)

	case *parse.RangeNode:
		c.branch(&n.BranchNode, rootDot, false)

	case *parse.WithNode:
		c.branch(&n.BranchNode, rootDot, false)

	case *parse.TemplateNode:
		c.walk(n.Pipe, rootDot)

	case *parse.ChainNode:
		c.walk(n.Node, rootDot)

	case *parse.IdentifierNode:
		c.ident(n.Ident, 0)

	case *parse.FieldNode:
		if rootDot && len(n.Ident) > 0 {
			c.found[n.Ident[0]] = struct{}{}
		}

	case *parse.VariableNode:
		// $ всегда указывает на корневой набор переменных
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			c.found[n.Ident[1]] = struct{}{}
		}
	}
}

// command обходит команду пайплайна. piped — команда получает
// результат предыдущей последним аргументом.
func (c *collector) command(cmd *parse.CommandNode, rootDot, piped bool) {
	for i, arg := range cmd.Args {
		if id, ok := arg.(*parse.IdentifierNode); ok && i == 0 {
			given := len(cmd.Args) - 1
			if piped {
				given++
			}
			c.ident(id.Ident, given)
			continue
		}
		c.walk(arg, rootDot)
	}
}

// ident учитывает идентификатор, вызванный с given аргументами.
// Переменная — функция без аргументов, поэтому аргументы ей передавать нельзя.
func (c *collector) ident(name string, given int) {
	if isFuncName(name) {
		if a := funcArity(name); !a.accepts(given) {
			c.fail(fmt.Errorf("%w: function %q called with %d argument(s)", ErrTemplateSyntax, name, given))
		}
		return
	}

	if given > 0 {
		c.fail(fmt.Errorf("%w: variable %q does not take arguments", ErrTemplateSyntax, name))
		return
	}
	c.found[name] = struct{}{}
}

func (c *collector) branch(b *parse.BranchNode, outerDot, innerDot bool) {
	c.walk(b.Pipe, outerDot)
	c.walk(b.List, innerDot)
	c.walk(b.ElseList, outerDot)
}

func (c *collector) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// isIdentifier — имя допустимо как имя функции шаблона.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case i == 0 && !unicode.IsLetter(r):
			return false
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			return false
		}
	}
	return true
}

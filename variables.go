package main

import (
	"github.com/fansqz/js-debugger/remoteobject"
	"github.com/google/go-dap"
)

// treeKind 变量树的使用者，每一个使用者有自己的树
type treeKind int

const (
	// watchTree 作用域和监视表达式，页面刷新后重新计算
	watchTree treeKind = iota
	hoverTree
	replTree
	treeCount
)

// treeKindOf evaluate请求的context决定表达式放在哪一棵树中
func treeKindOf(context string) treeKind {
	switch context {
	case "watch":
		return watchTree
	case "hover":
		return hoverTree
	}
	return replTree
}

// evaluationKey 等待计算结果的表达式
type evaluationKey struct {
	kind       treeKind
	expression string
}

// variablesReference 节点在客户端的引用，低位是节点所在的树
func variablesReference(kind treeKind, id remoteobject.NodeID) int {
	return int(id)*int(treeCount) + int(kind)
}

// lookupReference variablesReference的逆映射，节点不存在时返回nil
func (d *DebugSession) lookupReference(reference int) (treeKind, *remoteobject.Node) {
	if reference <= 0 {
		return watchTree, nil
	}
	kind := treeKind(reference % int(treeCount))
	tree := d.trees[kind]
	if tree == nil {
		return kind, nil
	}
	return kind, tree.Node(remoteobject.NodeID(reference / int(treeCount)))
}

// findRootChild 树中名称为expression的表达式节点，作用域节点除外
func (d *DebugSession) findRootChild(kind treeKind, expression string) *remoteobject.Node {
	root := d.trees[kind].Root()
	if root == nil {
		return nil
	}
	for _, node := range root.Children() {
		if !node.IsTransient() && node.Name() == expression {
			return node
		}
	}
	return nil
}

func toDapVariable(kind treeKind, node *remoteobject.Node) dap.Variable {
	variable := dap.Variable{Name: node.Name()}
	if remoteObject := node.RemoteObject(); remoteObject != nil {
		variable.Value = remoteObject.Description
		variable.Type = string(remoteObject.Type)
		if remoteObject.SubType != "" {
			variable.Type = string(remoteObject.SubType)
		}
	}
	if node.WasThrown() {
		variable.Value = "[Exception: " + variable.Value + "]"
	}
	if node.HasChildren() {
		variable.VariablesReference = variablesReference(kind, node.ID())
	}
	return variable
}
